package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anu100405/REUNITE/models"
)

// GormCaseRepository handles database operations for MissingPerson and its
// owned Photo and Relative entities
type GormCaseRepository struct {
	DB *gorm.DB
}

func NewGormCaseRepository(db *gorm.DB) *GormCaseRepository {
	return &GormCaseRepository{DB: db}
}

// FindByIdentity fetches duplicate candidates by exact (full_name, age)
// equality, preloading relatives for the cross-reference check. The identity
// key is deliberately not unique at the storage level; reports that share it
// with disjoint relative sets are distinct cases.
func (r *GormCaseRepository) FindByIdentity(fullName string, age *int) ([]models.MissingPerson, error) {
	var cases []models.MissingPerson
	q := r.DB.Preload("Relatives").Where("full_name = ?", fullName)
	if age != nil {
		q = q.Where("age = ?", *age)
	} else {
		q = q.Where("age IS NULL")
	}
	if err := q.Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates for %q: %w", fullName, err)
	}
	return cases, nil
}

// CreateWithChildren inserts a report plus its photo and relative rows as one
// atomic unit. On any error the transaction rolls back and no rows remain.
func (r *GormCaseRepository) CreateWithChildren(mp *models.MissingPerson, photos []models.Photo, relatives []models.Relative) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(mp).Error; err != nil {
			return fmt.Errorf("failed to create missing person %q: %w", mp.FullName, err)
		}
		for i := range photos {
			photos[i].MissingPersonID = mp.ID
			if err := tx.Create(&photos[i]).Error; err != nil {
				return fmt.Errorf("failed to create photo %s: %w", photos[i].Filename, err)
			}
		}
		for i := range relatives {
			relatives[i].MissingPersonID = mp.ID
			if err := tx.Create(&relatives[i]).Error; err != nil {
				return fmt.Errorf("failed to create relative %q: %w", relatives[i].Name, err)
			}
		}
		mp.Photos = photos
		mp.Relatives = relatives
		return nil
	})
}

// GetByID retrieves a report with its reporter, photos, and relatives
func (r *GormCaseRepository) GetByID(id uint) (*models.MissingPerson, error) {
	var mp models.MissingPerson
	err := r.DB.Preload("Reporter").Preload("Photos").Preload("Relatives").First(&mp, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get missing person by ID %d: %w", id, err)
	}
	return &mp, nil
}

// GetByIDs retrieves fully hydrated reports for the given IDs, preserving
// the order of the input slice
func (r *GormCaseRepository) GetByIDs(ids []uint) ([]models.MissingPerson, error) {
	if len(ids) == 0 {
		return []models.MissingPerson{}, nil
	}
	var cases []models.MissingPerson
	err := r.DB.Preload("Reporter").Preload("Photos").Preload("Relatives").
		Where("id IN ?", ids).Find(&cases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get missing persons by IDs: %w", err)
	}

	byID := make(map[uint]models.MissingPerson, len(cases))
	for _, c := range cases {
		byID[c.ID] = c
	}
	ordered := make([]models.MissingPerson, 0, len(cases))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// Update saves mutable report fields and refreshes updated_at
func (r *GormCaseRepository) Update(mp *models.MissingPerson) error {
	mp.UpdatedAt = time.Now()
	result := r.DB.Model(&models.MissingPerson{ID: mp.ID}).
		Select("full_name", "age", "gender", "height", "weight", "hair_color", "eye_color",
			"last_seen_location", "last_seen_date", "description", "status", "updated_at").
		Updates(mp)
	if result.Error != nil {
		return fmt.Errorf("failed to update missing person ID %d: %w", mp.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCascade removes a report and all of its child rows in one
// transaction, children first. File removal is the caller's concern; the
// repository only guarantees no orphaned rows.
func (r *GormCaseRepository) DeleteCascade(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("missing_person_id = ?", id).Delete(&models.Relative{}).Error; err != nil {
			return fmt.Errorf("failed to delete relatives for missing person %d: %w", id, err)
		}
		if err := tx.Where("missing_person_id = ?", id).Delete(&models.Photo{}).Error; err != nil {
			return fmt.Errorf("failed to delete photos for missing person %d: %w", id, err)
		}
		result := tx.Delete(&models.MissingPerson{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete missing person %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
