package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// resumeKeyPrefix namespaces resume records in the key-value store
const resumeKeyPrefix = "resume:"

// ErrResumeNotFound is returned when no record exists for a resume id
var ErrResumeNotFound = errors.New("resume not found")

// Repository is the key-value store the resume records live in
type Repository interface {
	Close() error
	// Get returns the serialized value for key, ok is false when there is none
	Get(key string) (value string, ok bool, err error)
	Set(key string, value string) error
	Delete(key string) error
	// Keys lists every key starting with prefix in key order
	Keys(prefix string) ([]string, error)
}

// Resume is an uploaded resume and its preview
type Resume struct {
	ID             string    `json:"id"`
	CompanyName    string    `json:"companyName,omitempty"`
	JobTitle       string    `json:"jobTitle,omitempty"`
	JobDescription string    `json:"jobDescription,omitempty"`
	ImagePath      string    `json:"imagePath"`
	ResumePath     string    `json:"resumePath"`
	ResumeText     string    `json:"resumeText,omitempty"`
	UploadedAt     time.Time `json:"uploadedAt"`
	Feedback       *Feedback `json:"feedback"` // nil until the feedback service has scored it
}

// Tip is a single piece of feedback
type Tip struct {
	Type        string `json:"type"` // "good" or "improve"
	Tip         string `json:"tip"`
	Explanation string `json:"explanation,omitempty"`
}

// FeedbackSection is a scored area of the resume
type FeedbackSection struct {
	Score int   `json:"score"`
	Tips  []Tip `json:"tips"`
}

// Feedback is the AI review of a resume
type Feedback struct {
	OverallScore int             `json:"overallScore"`
	ATS          FeedbackSection `json:"ATS"`
	ToneAndStyle FeedbackSection `json:"toneAndStyle"`
	Content      FeedbackSection `json:"content"`
	Structure    FeedbackSection `json:"structure"`
	Skills       FeedbackSection `json:"skills"`
}

func resumeKey(id string) string {
	return resumeKeyPrefix + id
}

// SaveResume writes the resume record, replacing any existing one
func SaveResume(resume *Resume, db Repository) error {
	if resume.ID == "" {
		return fmt.Errorf("resume has no id")
	}
	data, err := json.Marshal(resume)
	if err != nil {
		return fmt.Errorf("unable to serialize resume: %w", err)
	}
	if err := db.Set(resumeKey(resume.ID), string(data)); err != nil {
		Logger.Error("Unable to save resume", "id", resume.ID, "error", err)
		return err
	}
	return nil
}

// FetchResume fetches a resume by id, the status code is for the HTTP response
func FetchResume(id string, db Repository) (Resume, int, error) {
	data, ok, err := db.Get(resumeKey(id))
	if err != nil {
		Logger.Error("Database error fetching resume", "id", id, "error", err)
		return Resume{}, http.StatusInternalServerError, err
	}
	if !ok {
		return Resume{}, http.StatusNotFound, ErrResumeNotFound
	}
	var resume Resume
	if err := json.Unmarshal([]byte(data), &resume); err != nil {
		Logger.Error("Stored resume is not valid JSON", "id", id, "error", err)
		return Resume{}, http.StatusInternalServerError, err
	}
	return resume, http.StatusOK, nil
}

// FetchAllResumes returns every stored resume, newest first
func FetchAllResumes(db Repository) ([]Resume, error) {
	keys, err := db.Keys(resumeKeyPrefix)
	if err != nil {
		Logger.Error("Unable to list resumes", "error", err)
		return nil, err
	}
	resumes := make([]Resume, 0, len(keys))
	for _, key := range keys {
		resume, _, err := FetchResume(strings.TrimPrefix(key, resumeKeyPrefix), db)
		if err != nil {
			Logger.Warn("Skipping unreadable resume", "key", key, "error", err)
			continue
		}
		resumes = append(resumes, resume)
	}
	sort.SliceStable(resumes, func(i, j int) bool {
		return resumes[i].UploadedAt.After(resumes[j].UploadedAt)
	})
	return resumes, nil
}

// DeleteResume removes the resume record (files on disk are the caller's concern)
func DeleteResume(id string, db Repository) error {
	_, ok, err := db.Get(resumeKey(id))
	if err != nil {
		return err
	}
	if !ok {
		return ErrResumeNotFound
	}
	return db.Delete(resumeKey(id))
}

// CalculateUUID creates a ULID from a timestamp
func CalculateUUID(time time.Time) (ulid.ULID, error) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.UnixNano())), 0)
	newULID, err := ulid.New(ulid.Timestamp(time), entropy)
	if err != nil {
		return newULID, err
	}
	return newULID, nil
}
