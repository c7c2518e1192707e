package repository

import "github.com/anu100405/REUNITE/models"

// CaseRepository defines the methods for missing person report persistence.
// CreateWithChildren and DeleteCascade are single transactions: readers
// never observe a report with only some of its photos or relatives.
type CaseRepository interface {
	// FindByIdentity returns every report whose (full_name, age) exactly
	// equals the given key, with relatives preloaded. A nil age only
	// matches reports whose age is also absent.
	FindByIdentity(fullName string, age *int) ([]models.MissingPerson, error)
	CreateWithChildren(mp *models.MissingPerson, photos []models.Photo, relatives []models.Relative) error
	GetByID(id uint) (*models.MissingPerson, error)
	GetByIDs(ids []uint) ([]models.MissingPerson, error)
	Update(mp *models.MissingPerson) error
	DeleteCascade(id uint) error
}

// UserRepository defines the methods for reporter account data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}
