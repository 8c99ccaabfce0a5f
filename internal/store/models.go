package store

import (
	"encoding/json"
	"strconv"
	"time"
)

// Collection paths. Program years nest under ProgramPath via ProgramYearPath.
const (
	ActivitiesPath = "activities"
	CommentsPath   = "comments"
	MotivationPath = "motivasi"
	StructurePath  = "struktur"
	ProgramPath    = "programKerja"
)

// Activity is a news/announcement record.
type Activity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Date        string `json:"date"`
}

// UploadedAt parses the creation timestamp; zero when absent or malformed,
// which sorts the record last in a newest-first feed.
func (a Activity) UploadedAt() time.Time {
	t, err := time.Parse(time.RFC3339, a.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Comment is a visitor comment, optionally attached to an activity.
type Comment struct {
	Text       string `json:"text"`
	Name       string `json:"name,omitempty"`
	Date       int64  `json:"date,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	Likes      int    `json:"likes"`
	ActivityID string `json:"activityId,omitempty"`
}

// UploadedAt reads the creation instant from whichever of the two legacy
// field names is present; zero when neither is.
func (c Comment) UploadedAt() time.Time {
	ms := c.Date
	if ms == 0 {
		ms = c.Timestamp
	}
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Motivation is a time-limited quote, keyed by upload day (yyyy-mm-dd).
type Motivation struct {
	Text       string `json:"text"`
	Author     string `json:"author,omitempty"`
	UploadedAt string `json:"uploadedAt"`
}

// At parses the upload instant, falling back to the record's day key for
// legacy records written without an uploadedAt field.
func (m Motivation) At(key string) time.Time {
	if t, err := time.Parse(time.RFC3339, m.UploadedAt); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", key); err == nil {
		return t
	}
	return time.Time{}
}

// StructureEntry is one position in the organizational structure. Legacy
// records stored the holder name as a bare string; those decode into Nama
// with a zero upload instant.
type StructureEntry struct {
	Nama       string `json:"nama"`
	UploadedAt int64  `json:"uploadedAt,omitempty"`
}

func (e *StructureEntry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		e.Nama = name
		e.UploadedAt = 0
		return nil
	}
	type plain StructureEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = StructureEntry(p)
	return nil
}

// At returns the instant the position was first assigned; zero when the
// record predates upload stamping.
func (e StructureEntry) At() time.Time {
	if e.UploadedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.UploadedAt).UTC()
}

// Admin is a dashboard account, stored under a key derived from the email.
type Admin struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
}

// ProgramYearPath addresses one year's division map.
func ProgramYearPath(year int) string {
	return ProgramPath + "/" + strconv.Itoa(year)
}
