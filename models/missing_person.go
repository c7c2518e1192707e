package models

import "time"

// Case status values. Transitions are reporter-curated and not enforced.
const (
	StatusMissing = "missing"
	StatusFound   = "found"
	StatusClosed  = "closed"
)

// MissingPerson is the aggregate root for a missing person report. It owns
// its Photos and Relatives: neither is meaningful without the report, and
// deleting a report deletes both.
type MissingPerson struct {
	ID               uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	FullName         string     `json:"full_name" gorm:"not null;index:idx_identity"`
	Age              *int       `json:"age" gorm:"index:idx_identity"`
	Gender           string     `json:"gender"`
	Height           string     `json:"height"`
	Weight           string     `json:"weight"`
	HairColor        string     `json:"hair_color"`
	EyeColor         string     `json:"eye_color"`
	LastSeenLocation string     `json:"last_seen_location"`
	LastSeenDate     *time.Time `json:"last_seen_date"`
	Description      string     `json:"description"`
	Status           string     `json:"status" gorm:"not null;default:missing"`

	ReporterID uint `json:"reporter_id" gorm:"not null"`
	Reporter   User `json:"-" gorm:"foreignKey:ReporterID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Photos    []Photo    `json:"photos,omitempty" gorm:"foreignKey:MissingPersonID;constraint:OnDelete:CASCADE"`
	Relatives []Relative `json:"relatives,omitempty" gorm:"foreignKey:MissingPersonID;constraint:OnDelete:CASCADE"`
}

func (MissingPerson) TableName() string {
	return "missing_persons"
}

// Photo is a stored image attached to a missing person report. Filename is
// the generated opaque identifier under the uploads directory, never the
// name the file was uploaded with.
type Photo struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Filename        string    `json:"filename" gorm:"not null"`
	FilePath        string    `json:"file_path" gorm:"not null"`
	MissingPersonID uint      `json:"missing_person_id" gorm:"not null;index"`
	TakenAt         *int64    `json:"taken_at,omitempty"` // EXIF capture time, Unix timestamp
	UploadedAt      time.Time `json:"uploaded_at" gorm:"autoCreateTime"`
}

func (Photo) TableName() string {
	return "photos"
}

// Relative is a contact for a missing person report. Name and relationship
// also serve as the cross-reference key for duplicate detection.
type Relative struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name            string    `json:"name" gorm:"not null"`
	Relationship    string    `json:"relationship"` // mother, father, sibling, etc.
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Address         string    `json:"address"`
	MissingPersonID uint      `json:"missing_person_id" gorm:"not null;index"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Relative) TableName() string {
	return "relatives"
}
