package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type demoUser struct {
	Name  string
	Email string
	Role  string
}

var demoUsers = []demoUser{
	{Name: "Admin", Email: "admin@lms.local", Role: models.RoleAdmin},
	{Name: "Instructor", Email: "instructor@lms.local", Role: models.RoleInstructor},
	{Name: "Student", Email: "student@lms.local", Role: models.RoleStudent},
}

func main() {
	weightsFile := flag.String("weights", "", "YAML file replacing the global grade weights")
	password := flag.String("password", "password123", "password for the demo users")
	flag.Parse()

	// Load config and connect to database
	config.LoadConfig()
	database.ConnectDb()
	db := database.Database.Db

	if *weightsFile != "" {
		raw, err := os.ReadFile(*weightsFile)
		if err != nil {
			log.Fatalf("Failed to read weights file: %v", err)
		}
		weights, err := config.ParseGradeWeights(raw)
		if err != nil {
			log.Fatalf("Failed to parse weights file: %v", err)
		}
		for scheme, values := range weights {
			if err := grading.ValidateWeights(scheme, grading.Weights(values)); err != nil {
				log.Fatalf("Invalid %s weights: %v", scheme, err)
			}
		}
		if err := replaceGlobalWeights(db, weights); err != nil {
			log.Fatalf("Failed to replace global weights: %v", err)
		}
		log.Printf("Global weights replaced from %s", *weightsFile)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), config.AppConfig.SaltRound)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	created := 0
	for _, u := range demoUsers {
		var user models.User
		err := db.Where("email = ?", u.Email).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = models.User{Name: u.Name, Email: u.Email, Role: u.Role, Password: string(hash)}
			if err := db.Create(&user).Error; err != nil {
				log.Fatalf("Failed to create %s: %v", u.Email, err)
			}
			created++
		} else if err != nil {
			log.Fatalf("Failed to look up %s: %v", u.Email, err)
		}

		// Session issuance lives outside this service; print dev tokens instead
		token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
		if err != nil {
			log.Fatalf("Failed to sign token for %s: %v", u.Email, err)
		}
		log.Printf("[SEED] %s (%s) token: %s", user.Email, user.Role, token)
	}

	log.Printf("Seed complete: %d demo users created", created)
}

func replaceGlobalWeights(db *gorm.DB, weights config.GradeWeights) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for scheme, values := range weights {
			if err := tx.Unscoped().Where("scheme = ?", scheme).Delete(&courseModels.GradeSetting{}).Error; err != nil {
				return err
			}
			for key, weight := range values {
				row := courseModels.GradeSetting{Scheme: scheme, Key: key, Weight: weight}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
