// Command create-admin bootstraps an administrator account so the first
// catalog and evaluator accounts can be set up through the API.
package main

import (
	"flag"
	"log"

	"transfer-credit-api/config"
	"transfer-credit-api/models"
	"transfer-credit-api/utils"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var (
		email     string
		password  string
		firstName string
		lastName  string
	)
	flag.StringVar(&email, "email", "", "admin email address (required)")
	flag.StringVar(&password, "password", "", "admin password (required)")
	flag.StringVar(&firstName, "first-name", "Platform", "admin first name")
	flag.StringVar(&lastName, "last-name", "Administrator", "admin last name")
	flag.Parse()

	email = utils.SanitizeInput(email)
	if !utils.ValidateEmail(email) {
		log.Fatal("a valid -email is required")
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		log.Fatalf("invalid -password: %s", msg)
	}

	config.InitDB()
	config.MigrateDB()

	var existing int64
	if err := config.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		log.Fatalf("cannot check existing accounts: %v", err)
	}
	if existing > 0 {
		log.Fatalf("an account with email %s already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("cannot hash password: %v", err)
	}

	admin := models.User{
		FirstName: utils.SanitizeInput(firstName),
		LastName:  utils.SanitizeInput(lastName),
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleAdmin,
		IsActive:  true,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		log.Fatalf("cannot create admin account: %v", err)
	}

	log.Printf("Admin account %s created (user_id=%d)", admin.Email, admin.UserID)
}
