// Package seed provides database seeding for development and demos.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"smartcity/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumOwners   int
	NumCitizens int
	ShouldClean bool
}

// builtinCategories is the baseline category catalog every deployment gets.
var builtinCategories = []string{
	"Food & Beverage", "Retail", "Health & Wellness", "Professional Services",
	"Construction", "Education", "Entertainment", "Transport", "Technology",
}

var municipalities = []string{
	"Springfield", "Shelbyville", "Riverton", "Lakeside", "Hillcrest",
}

// Categories upserts the built-in category catalog. Idempotent, safe to run
// on every startup.
func Categories(db *gorm.DB) error {
	for _, name := range builtinCategories {
		cat := models.Category{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&cat).Error; err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

// Demo populates the database with demo users, requests and public content.
func Demo(db *gorm.DB, opts Options) error {
	log.Printf("Seeding demo data: %d owners, %d citizens...", opts.NumOwners, opts.NumCitizens)
	gofakeit.Seed(time.Now().UnixNano())

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	if err := Categories(db); err != nil {
		return err
	}

	password, err := bcrypt.GenerateFromPassword([]byte("DemoPassword12!@"), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	// one admin per municipality
	admins := make([]*models.User, 0, len(municipalities))
	for i, muni := range municipalities {
		admin := &models.User{
			Username:     fmt.Sprintf("admin_%d", i+1),
			Password:     string(password),
			Role:         models.RoleAdmin,
			Municipality: muni,
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		admins = append(admins, admin)
	}

	citizens := make([]*models.User, 0, opts.NumCitizens)
	for i := 0; i < opts.NumCitizens; i++ {
		citizen := &models.User{
			Username: fmt.Sprintf("%s_%d", gofakeit.Username(), i),
			Password: string(password),
			Role:     models.RoleCitizen,
		}
		if err := db.Create(citizen).Error; err != nil {
			return fmt.Errorf("seed citizen: %w", err)
		}
		citizens = append(citizens, citizen)
	}

	statuses := []models.RequestStatus{
		models.RequestStatusPending,
		models.RequestStatusApproved,
		models.RequestStatusRejected,
	}

	for i := 0; i < opts.NumOwners; i++ {
		muni := municipalities[rand.Intn(len(municipalities))]
		owner := &models.User{
			Username:     fmt.Sprintf("%s_owner_%d", gofakeit.Username(), i),
			Password:     string(password),
			Role:         models.RoleOwner,
			Municipality: muni,
		}
		if err := db.Create(owner).Error; err != nil {
			return fmt.Errorf("seed owner: %w", err)
		}

		req := &models.ServiceRequest{
			Name:         gofakeit.Company(),
			Description:  gofakeit.Sentence(12),
			Category:     builtinCategories[rand.Intn(len(builtinCategories))],
			Address:      gofakeit.Street(),
			Status:       statuses[rand.Intn(len(statuses))],
			OwnerID:      owner.ID,
			Municipality: muni,
		}
		if req.Status == models.RequestStatusApproved {
			lat := gofakeit.Latitude()
			lng := gofakeit.Longitude()
			req.Lat = &lat
			req.Lng = &lng
			req.Comments = "Approved after document review."
		}
		if req.Status == models.RequestStatusRejected {
			req.Comments = "Missing required permits."
		}
		if err := db.Create(req).Error; err != nil {
			return fmt.Errorf("seed request: %w", err)
		}

		if req.Status != models.RequestStatusApproved {
			continue
		}

		// public content only exists for approved businesses
		for j := 0; j < rand.Intn(3)+1; j++ {
			offering := &models.Offering{
				BusinessID:  req.ID,
				OwnerID:     owner.ID,
				Name:        gofakeit.ProductName(),
				Description: gofakeit.Sentence(8),
				Price:       fmt.Sprintf("%.2f", gofakeit.Price(2, 200)),
			}
			if err := db.Create(offering).Error; err != nil {
				return fmt.Errorf("seed offering: %w", err)
			}
		}

		if len(citizens) > 0 {
			for j := 0; j < rand.Intn(4); j++ {
				citizen := citizens[rand.Intn(len(citizens))]
				review := &models.Review{
					BusinessID: req.ID,
					UserID:     citizen.ID,
					Username:   citizen.Username,
					Comment:    gofakeit.Sentence(10),
					Rating:     rand.Intn(5) + 1,
				}
				if err := db.Create(review).Error; err != nil {
					return fmt.Errorf("seed review: %w", err)
				}
			}
		}
	}

	log.Println("Demo seeding complete")
	return nil
}

// clearData wipes demo-relevant tables, children before parents.
func clearData(db *gorm.DB) error {
	tables := []interface{}{
		&models.Review{}, &models.Offering{}, &models.Notification{},
		&models.Message{}, &models.Conversation{}, &models.Document{},
		&models.ServiceRequest{}, &models.User{},
	}
	for _, table := range tables {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return err
		}
	}
	return nil
}
