package model

import (
	"errors"
	"fmt"
	"time"
)

// Property categories and LTV tiers mirror what the survey form
// offers; anything else is a client bug.
const (
	RecordTypeApartment = "apartment"
	RecordTypeLand      = "land"

	RegionSeoul    = "seoul"
	RegionGyeonggi = "gyeonggi"

	LtvRateRegulated   = 40
	LtvRateUnregulated = 70
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrNotRecordOwner  = errors.New("record does not belong to user")
)

// Record is one property visit entry (apartment or land).
type Record struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"user_id"`
	Type                  string    `json:"type"`
	AreaPyeong            int       `json:"area_pyeong"`
	PriceInHundredMillion float64   `json:"price_in_hundred_million"`
	RegionSi              string    `json:"region_si"`
	RegionGu              string    `json:"region_gu"`
	RegionDong            *string   `json:"region_dong,omitempty"`
	AddressFull           *string   `json:"address_full,omitempty"`
	ApartmentName         *string   `json:"apartment_name,omitempty"`
	Latitude              *float64  `json:"latitude,omitempty"`
	Longitude             *float64  `json:"longitude,omitempty"`
	SchoolAccessibility   int       `json:"school_accessibility"`
	TrafficAccessibility  string    `json:"traffic_accessibility"`
	IsLtvRegulated        bool      `json:"is_ltv_regulated"`
	LtvRate               int       `json:"ltv_rate"`
	Memo                  *string   `json:"memo,omitempty"`
	AIReport              *string   `json:"ai_report,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`

	Photos   []RecordPhoto `json:"record_photos,omitempty"`
	Comments []Comment     `json:"comments,omitempty"`
}

type RecordPhoto struct {
	ID         int64     `json:"id"`
	RecordID   int64     `json:"record_id"`
	PhotoURL   string    `json:"photo_url"`
	PhotoOrder int       `json:"photo_order"`
	CreatedAt  time.Time `json:"created_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	RecordID  int64     `json:"record_id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SearchHistory struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	RegionSi   string    `json:"region_si"`
	RegionGu   string    `json:"region_gu"`
	SearchedAt time.Time `json:"searched_at"`
}

// Validate enforces the form-level invariants before a record is
// written: two-valued LTV tier, regulated region implies the 40% tier,
// rating in 1..5, pyeong bucket in {20, 30}.
func (r *Record) Validate() error {
	if r.Type != RecordTypeApartment && r.Type != RecordTypeLand {
		return fmt.Errorf("invalid record type %q", r.Type)
	}
	if r.AreaPyeong != 20 && r.AreaPyeong != 30 {
		return fmt.Errorf("invalid area_pyeong %d: must be 20 or 30", r.AreaPyeong)
	}
	if r.PriceInHundredMillion <= 0 {
		return errors.New("price_in_hundred_million must be positive")
	}
	if r.RegionSi != RegionSeoul && r.RegionSi != RegionGyeonggi {
		return fmt.Errorf("invalid region_si %q", r.RegionSi)
	}
	if r.RegionGu == "" {
		return errors.New("region_gu is required")
	}
	if r.SchoolAccessibility < 1 || r.SchoolAccessibility > 5 {
		return fmt.Errorf("school_accessibility %d out of range 1-5", r.SchoolAccessibility)
	}
	if r.LtvRate != LtvRateRegulated && r.LtvRate != LtvRateUnregulated {
		return fmt.Errorf("invalid ltv_rate %d: must be %d or %d", r.LtvRate, LtvRateRegulated, LtvRateUnregulated)
	}
	if r.IsLtvRegulated && r.LtvRate != LtvRateRegulated {
		return errors.New("regulated region records must use the 40% LTV tier")
	}
	return nil
}
