// Package importer loads profiles from CSV exports with duplicate
// prevention.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// requiredColumns must be present in the CSV header.
var requiredColumns = []string{"first_name", "last_name", "profile_url"}

// Result summarizes one import run.
type Result struct {
	TotalRows         int `json:"total_rows"`
	NewProfiles       int `json:"new_profiles"`
	DuplicatesSkipped int `json:"duplicates_skipped"`
	Errors            int `json:"errors"`
}

// ConnectionResult summarizes one connection import run.
type ConnectionResult struct {
	TotalRows           int `json:"total_rows"`
	NewConnections      int `json:"new_connections"`
	ReconciledProspects int `json:"reconciled_prospects"`
	DuplicatesSkipped   int `json:"duplicates_skipped"`
	Errors              int `json:"errors"`
}

// ProfileStore is the storage surface the importer needs.
type ProfileStore interface {
	Exists(ctx context.Context, profileURL, username string) (bool, error)
	GetByProfileURL(ctx context.Context, profileURL string) (*models.Profile, error)
	Create(ctx context.Context, req models.ImportProfileRequest) (*models.Profile, error)
	MarkCurrentConnection(ctx context.Context, id int64) error
}

// Importer reads profile CSVs and writes new rows through the store.
type Importer struct {
	profiles ProfileStore
	validate *validator.Validate
	logger   ectologger.Logger
}

func New(profiles ProfileStore, logger ectologger.Logger) *Importer {
	return &Importer{
		profiles: profiles,
		validate: validator.New(),
		logger:   logger,
	}
}

// Import reads CSV rows and creates profiles with the given connection
// status. Rows matching an existing (profile_url, username) pair are
// counted as duplicates and skipped; malformed rows count as errors and
// never abort the run.
func (im *Importer) Import(ctx context.Context, r io.Reader, connection models.ConnectionStatus) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Importer.Import")
	defer span.End()

	reader, columns, err := newRowReader(r)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	// Dedup within the file as well as against the database.
	seen := make(map[string]struct{})

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			im.logger.WithContext(ctx).WithError(err).Warn("Skipping malformed CSV row")
			result.Errors++
			continue
		}
		result.TotalRows++

		req := buildRequest(columns, record, connection)
		if err := im.validate.Struct(req); err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Warn("Skipping invalid CSV row")
			result.Errors++
			continue
		}

		key := req.ProfileURL + "|" + req.Username
		if _, ok := seen[key]; ok {
			result.DuplicatesSkipped++
			continue
		}
		seen[key] = struct{}{}

		exists, err := im.profiles.Exists(ctx, req.ProfileURL, req.Username)
		if err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Error("Duplicate check failed")
			result.Errors++
			continue
		}
		if exists {
			result.DuplicatesSkipped++
			continue
		}

		if _, err := im.profiles.Create(ctx, req); err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Error("Failed to create profile")
			result.Errors++
			continue
		}
		result.NewProfiles++
	}

	im.logger.WithContext(ctx).WithFields(map[string]any{
		"total_rows":         result.TotalRows,
		"new_profiles":       result.NewProfiles,
		"duplicates_skipped": result.DuplicatesSkipped,
		"errors":             result.Errors,
	}).Info("Profile import completed")
	return result, nil
}

// ImportConnections reads a connections CSV and reconciles it against
// tracked profiles. Profiles already known as prospects are promoted to
// current connections; unknown profiles are created directly in
// maintenance; existing connections are skipped.
func (im *Importer) ImportConnections(ctx context.Context, r io.Reader) (*ConnectionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Importer.ImportConnections")
	defer span.End()

	reader, columns, err := newRowReader(r)
	if err != nil {
		return nil, err
	}

	result := &ConnectionResult{}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			im.logger.WithContext(ctx).WithError(err).Warn("Skipping malformed CSV row")
			result.Errors++
			continue
		}
		result.TotalRows++

		req := buildRequest(columns, record, models.ConnectionStatusCurrent)
		if err := im.validate.Struct(req); err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Warn("Skipping invalid CSV row")
			result.Errors++
			continue
		}

		// Match by URL alone so a prospect imported under a slightly
		// different username is still reconciled.
		existing, err := im.profiles.GetByProfileURL(ctx, req.ProfileURL)
		if err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Error("Profile lookup failed")
			result.Errors++
			continue
		}

		if existing != nil {
			if existing.ConnectionStatus == models.ConnectionStatusCurrent {
				result.DuplicatesSkipped++
				continue
			}
			if err := im.profiles.MarkCurrentConnection(ctx, existing.ID); err != nil {
				im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_id": existing.ID}).Error("Failed to reconcile prospect")
				result.Errors++
				continue
			}
			im.logger.WithContext(ctx).WithFields(map[string]any{
				"profile_id":      existing.ID,
				"previous_status": existing.Status,
			}).Info("Reconciled prospect to connection")
			result.ReconciledProspects++
			continue
		}

		if _, err := im.profiles.Create(ctx, req); err != nil {
			im.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"profile_url": req.ProfileURL}).Error("Failed to create connection")
			result.Errors++
			continue
		}
		result.NewConnections++
	}

	im.logger.WithContext(ctx).WithFields(map[string]any{
		"total_rows":           result.TotalRows,
		"new_connections":      result.NewConnections,
		"reconciled_prospects": result.ReconciledProspects,
		"duplicates_skipped":   result.DuplicatesSkipped,
		"errors":               result.Errors,
	}).Info("Connection import completed")
	return result, nil
}

func newRowReader(r io.Reader) (*csv.Reader, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, nil, fmt.Errorf("CSV missing required column %q", required)
		}
	}
	return reader, columns, nil
}

func buildRequest(columns map[string]int, record []string, connection models.ConnectionStatus) models.ImportProfileRequest {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	profileURL := field("profile_url")
	username := field("username")
	if username == "" {
		username = ExtractUsername(profileURL)
	}

	var jobTitle *string
	if title := field("job_title"); title != "" {
		jobTitle = &title
	}

	return models.ImportProfileRequest{
		ProfileURL:    profileURL,
		Username:      username,
		FirstName:     field("first_name"),
		LastName:      field("last_name"),
		JobTitle:      jobTitle,
		JobTitleScore: ScoreJobTitle(field("job_title")),
		Connection:    string(connection),
	}
}

// ExtractUsername pulls the username segment out of a profile URL.
// Returns empty when the URL has no /in/ segment.
func ExtractUsername(profileURL string) string {
	if profileURL == "" {
		return ""
	}
	idx := strings.Index(profileURL, "/in/")
	if idx < 0 {
		return ""
	}
	username := strings.TrimSuffix(profileURL[idx+len("/in/"):], "/")
	if cut := strings.IndexAny(username, "?#"); cut >= 0 {
		username = username[:cut]
	}
	return strings.TrimSuffix(username, "/")
}

// ScoreJobTitle ranks a job title for outreach priority. Product
// leadership scores highest; explicitly non-relevant roles score lowest.
func ScoreJobTitle(title string) int {
	if title == "" {
		return 1
	}
	lower := strings.ToLower(title)

	contains := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("chief product officer", "cpo", "vp of product", "head of product", "director of product", "product recruiter"):
		return 10
	case contains("senior product manager", "principal product manager", "lead product manager"):
		return 8
	case contains("product manager", "pm"):
		return 6
	case contains("associate product manager", "apm", "product owner", "product marketing"):
		return 4
	case contains("cto", "vp of engineering", "director of engineering", "recruiter", "talent acquisition"):
		return 2
	default:
		return 1
	}
}
