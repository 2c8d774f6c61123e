package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/time2pay/internal/auth"
	employeeDatamodel "github.com/frahmantamala/time2pay/internal/core/datamodel/employee"
	"github.com/frahmantamala/time2pay/internal/core/user"
	"github.com/frahmantamala/time2pay/internal/employee"
)

const seedPassword = "password123"

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed one account per role for development and testing. Departments come from the migrations.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"approvals", "verifications", "supporting_documents", "claims"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared claim data")
		}

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		accounts := []struct {
			Name       string
			Email      string
			Role       user.Role
			Department string
		}{
			{"Nomsa Khumalo", "hr@time2pay.local", user.RoleHRAdmin, "Human Resources"},
			{"Pieter van Wyk", "manager@time2pay.local", user.RoleManager, "Diploma in Software Development"},
			{"Ayanda Zulu", "coordinator@time2pay.local", user.RoleCoordinator, "Diploma in Software Development"},
			{"Lerato Mokoena", "lecturer@time2pay.local", user.RoleLecturer, "Diploma in Software Development"},
		}

		for _, a := range accounts {
			if err := seedEmployee(db, a.Name, employee.NormalizeEmail(a.Email), a.Role, a.Department, hash); err != nil {
				log.Fatalf("failed to seed %s: %v", a.Email, err)
			}
		}

		fmt.Printf("Seed accounts share the password %q\n", seedPassword)
	},
}

func seedEmployee(db *gorm.DB, name, email string, role user.Role, departmentName, hash string) error {
	var dept employeeDatamodel.Department
	if err := db.Where("name = ?", departmentName).First(&dept).Error; err != nil {
		return fmt.Errorf("department %q not found, run migrate first: %w", departmentName, err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing employeeDatamodel.Employee
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			fmt.Println("employee already exists:", email)
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		e := employeeDatamodel.Employee{
			Name:         name,
			Email:        email,
			DepartmentID: dept.ID,
			Role:         string(role),
		}
		if err := tx.Create(&e).Error; err != nil {
			return err
		}

		account := employeeDatamodel.UserAccount{
			EmployeeID:   e.ID,
			PasswordHash: hash,
			IsActive:     true,
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		fmt.Printf("Seeded %s: %s\n", role, email)
		return nil
	})
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing claim data before seeding")
}
