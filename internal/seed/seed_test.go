package seed

import (
	"testing"

	"smartcity/internal/database"
	"smartcity/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestCategoriesIsIdempotent(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Categories(db))
	var first int64
	db.Model(&models.Category{}).Count(&first)
	assert.Greater(t, first, int64(0))

	require.NoError(t, Categories(db))
	var second int64
	db.Model(&models.Category{}).Count(&second)
	assert.Equal(t, first, second)
}

func TestDemoPopulatesAllRoles(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Demo(db, Options{NumOwners: 10, NumCitizens: 5}))

	var owners, admins, citizens int64
	db.Model(&models.User{}).Where("role = ?", models.RoleOwner).Count(&owners)
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins)
	db.Model(&models.User{}).Where("role = ?", models.RoleCitizen).Count(&citizens)
	assert.Equal(t, int64(10), owners)
	assert.Equal(t, int64(len(municipalities)), admins)
	assert.Equal(t, int64(5), citizens)

	var requests int64
	db.Model(&models.ServiceRequest{}).Count(&requests)
	assert.Equal(t, int64(10), requests)

	// approved requests carry locations, non-approved have no public content
	var approved []models.ServiceRequest
	db.Where("status = ?", models.RequestStatusApproved).Find(&approved)
	for _, req := range approved {
		assert.NotNil(t, req.Lat)
		assert.NotNil(t, req.Lng)
	}

	var offerings []models.Offering
	db.Find(&offerings)
	for _, off := range offerings {
		var req models.ServiceRequest
		require.NoError(t, db.First(&req, "id = ?", off.BusinessID).Error)
		assert.Equal(t, models.RequestStatusApproved, req.Status)
	}
}

func TestDemoCleanWipesPreviousRun(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Demo(db, Options{NumOwners: 4, NumCitizens: 2}))
	require.NoError(t, Demo(db, Options{NumOwners: 3, NumCitizens: 1, ShouldClean: true}))

	var users int64
	db.Model(&models.User{}).Where("role = ?", models.RoleOwner).Count(&users)
	assert.Equal(t, int64(3), users)
}
