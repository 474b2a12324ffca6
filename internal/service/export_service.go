package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/models"
	"github.com/the-nook/nook-api/internal/repository"
	"github.com/the-nook/nook-api/internal/validation"
)

// flushEvery is how many records are written between flushes
const flushEvery = 100

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

func unsupportedFormat(format string) error {
	return validation.Errors{{Field: "format", Message: "unsupported format", Value: format}}
}

// StreamUsers streams profiles as ndjson, json or csv
func (s *exportService) StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error {
	var count int
	var err error

	switch format {
	case "ndjson":
		count, err = streamNDJSON(ctx, w, "users", s.repos.User.StreamAll)
	case "json":
		count, err = streamJSON(ctx, w, "users", s.repos.User.StreamAll)
	case "csv":
		count, err = s.streamUsersCSV(ctx, w)
	default:
		return unsupportedFormat(format)
	}

	s.logDone("users", format, count, err)
	return err
}

// StreamArticles streams articles as ndjson or json
func (s *exportService) StreamArticles(ctx context.Context, w http.ResponseWriter, format string) error {
	var count int
	var err error

	switch format {
	case "ndjson":
		count, err = streamNDJSON(ctx, w, "articles", s.repos.Article.StreamAll)
	case "json":
		count, err = streamJSON(ctx, w, "articles", s.repos.Article.StreamAll)
	default:
		return unsupportedFormat(format)
	}

	s.logDone("articles", format, count, err)
	return err
}

func (s *exportService) logDone(resource, format string, count int, err error) {
	ev := s.log.Info()
	if err != nil {
		ev = s.log.Error().Err(err)
	}
	ev.Str("resource", resource).Str("format", format).Int("count", count).Msg("Export finished")
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
}

// streamNDJSON writes one JSON document per line from a StreamAll method
func streamNDJSON[T any](ctx context.Context, w http.ResponseWriter, name string, stream func(context.Context, func(T) error) error) (int, error) {
	attachment(w, "application/x-ndjson", name+".ndjson")

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	count := 0

	err := stream(ctx, func(record T) error {
		if err := enc.Encode(record); err != nil {
			return err
		}
		count++
		if count%flushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

// streamJSON writes a single JSON array from a StreamAll method
func streamJSON[T any](ctx context.Context, w http.ResponseWriter, name string, stream func(context.Context, func(T) error) error) (int, error) {
	attachment(w, "application/json", name+".json")

	if _, err := w.Write([]byte("[")); err != nil {
		return 0, err
	}
	count := 0

	err := stream(ctx, func(record T) error {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if count > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		count++
		_, err = w.Write(data)
		return err
	})

	if _, werr := w.Write([]byte("]")); err == nil {
		err = werr
	}
	return count, err
}

func (s *exportService) streamUsersCSV(ctx context.Context, w http.ResponseWriter) (int, error) {
	attachment(w, "text/csv", "users.csv")

	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"id", "email", "display_name", "username", "status", "banned", "avatar_url", "created_at", "updated_at"}); err != nil {
		return 0, err
	}

	count := 0
	err := s.repos.User.StreamAll(ctx, func(user *models.UserProfile) error {
		username := ""
		if user.Username != nil {
			username = *user.Username
		}
		if err := writer.Write([]string{
			user.ID,
			user.Email,
			user.DisplayName,
			username,
			string(user.Status),
			strconv.FormatBool(user.Banned),
			user.AvatarURL,
			user.CreatedAt.UTC().Format(time.RFC3339),
			user.UpdatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}

	writer.Flush()
	return count, writer.Error()
}

// GetCount returns the record count of a resource
func (s *exportService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "users":
		return s.repos.User.Count(ctx)
	case "articles":
		return s.repos.Article.Count(ctx)
	case "publication_requests":
		requests, err := s.repos.Request.ListPending(ctx)
		return len(requests), err
	default:
		return 0, fmt.Errorf("unknown resource: %s", resource)
	}
}
