package database

import "smartcity/internal/models"

// PersistentModels returns every model that participates in schema
// migration. Order matters for foreign keys: parents before children.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.ServiceRequest{},
		&models.Document{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
		&models.Review{},
		&models.Offering{},
	}
}
