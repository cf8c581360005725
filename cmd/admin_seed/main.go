// Command admin_seed creates the admin account and the platform fee wallet.
// Run once against a fresh database before starting the server.
package main

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/rekberkan/kahade-sub000/internal/config"
	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
)

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer func() {
		sqlDB, err := repositories.DB.DB()
		if err != nil {
			log.Printf("failed to get SQL DB instance: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.Printf("failed to close database connection: %v", err)
		}
	}()

	var existingAdmin models.User
	if err := repositories.DB.Where("email = ?", adminEmail).First(&existingAdmin).Error; err == nil {
		log.Println("admin user already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("failed to hash password:", err)
	}

	adminUser := models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Name:         "Platform Admin",
		Role:         models.RoleAdmin,
		TokenVersion: 1,
	}
	if err := repositories.DB.Create(&adminUser).Error; err != nil {
		log.Fatal("failed to create admin user:", err)
	}

	// The platform fee wallet collects the fee leg of every capture. Its id
	// must match PLATFORM_WALLET_ID in the server's environment.
	platformWallet := models.Wallet{
		UserID:   adminUser.ID,
		Currency: config.GetEnv("DEFAULT_CURRENCY", "IDR"),
		Status:   models.WalletStatusActive,
	}
	if err := repositories.DB.Create(&platformWallet).Error; err != nil {
		log.Fatal("failed to create platform wallet:", err)
	}

	log.Printf("admin account created; platform wallet id=%d", platformWallet.ID)
}
