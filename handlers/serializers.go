package handlers

import (
	"time"

	"github.com/anu100405/REUNITE/models"
)

// Wire representations are built by free functions so the entities stay free
// of any knowledge of the HTTP surface.

type reporterResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type photoResponse struct {
	ID         uint      `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	TakenAt    *int64    `json:"taken_at,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type relativeResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
}

type caseResponse struct {
	ID               uint               `json:"id"`
	FullName         string             `json:"full_name"`
	Age              *int               `json:"age"`
	Gender           string             `json:"gender"`
	Height           string             `json:"height"`
	Weight           string             `json:"weight"`
	HairColor        string             `json:"hair_color"`
	EyeColor         string             `json:"eye_color"`
	LastSeenLocation string             `json:"last_seen_location"`
	LastSeenDate     *time.Time         `json:"last_seen_date"`
	Description      string             `json:"description"`
	Status           string             `json:"status"`
	Reporter         *reporterResponse  `json:"reporter"`
	Photos           []photoResponse    `json:"photos"`
	Relatives        []relativeResponse `json:"relatives"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func serializeReporter(u *models.User) *reporterResponse {
	if u == nil || u.ID == 0 {
		return nil
	}
	return &reporterResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

func serializePhoto(p models.Photo) photoResponse {
	return photoResponse{
		ID:         p.ID,
		Filename:   p.Filename,
		URL:        "/api/uploads/" + p.Filename,
		TakenAt:    p.TakenAt,
		UploadedAt: p.UploadedAt,
	}
}

func serializeRelative(rel models.Relative) relativeResponse {
	return relativeResponse{
		ID:           rel.ID,
		Name:         rel.Name,
		Relationship: rel.Relationship,
		Phone:        rel.Phone,
		Email:        rel.Email,
		Address:      rel.Address,
		CreatedAt:    rel.CreatedAt,
	}
}

func serializeCase(mp *models.MissingPerson) caseResponse {
	photos := make([]photoResponse, 0, len(mp.Photos))
	for _, p := range mp.Photos {
		photos = append(photos, serializePhoto(p))
	}
	relatives := make([]relativeResponse, 0, len(mp.Relatives))
	for _, rel := range mp.Relatives {
		relatives = append(relatives, serializeRelative(rel))
	}
	return caseResponse{
		ID:               mp.ID,
		FullName:         mp.FullName,
		Age:              mp.Age,
		Gender:           mp.Gender,
		Height:           mp.Height,
		Weight:           mp.Weight,
		HairColor:        mp.HairColor,
		EyeColor:         mp.EyeColor,
		LastSeenLocation: mp.LastSeenLocation,
		LastSeenDate:     mp.LastSeenDate,
		Description:      mp.Description,
		Status:           mp.Status,
		Reporter:         serializeReporter(&mp.Reporter),
		Photos:           photos,
		Relatives:        relatives,
		CreatedAt:        mp.CreatedAt,
		UpdatedAt:        mp.UpdatedAt,
	}
}

func serializeCases(cases []models.MissingPerson) []caseResponse {
	out := make([]caseResponse, 0, len(cases))
	for i := range cases {
		out = append(out, serializeCase(&cases[i]))
	}
	return out
}
