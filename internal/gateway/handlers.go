package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"justdraft/internal/events"
	"justdraft/internal/export"
	"justdraft/internal/extract"
	"justdraft/internal/sessions"
)

// maxUploadBytes caps the multipart form held in memory. Voice memos
// and phone photos fit comfortably.
const maxUploadBytes = 32 << 20

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	apiKey := r.Header.Get("X-Api-Key")
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "missing X-Api-Key header")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	in := extract.Input{Text: r.FormValue("text")}

	if media, err := formMedia(r, "image"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if media != nil {
		in.Image = media
	}

	if media, err := formMedia(r, "audio"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if media != nil {
		in.Audio = media
	}

	client, err := s.newExtractor(apiKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	client.SetObserver(func(model string, usage *schema.TokenUsage, elapsed time.Duration, callErr error) {
		prompt, completion := 0, 0
		if usage != nil {
			prompt, completion = usage.PromptTokens, usage.CompletionTokens
		}
		s.bus.Publish(events.ModelCall(sess.ID, model, prompt, completion, elapsed, callErr))
	})

	summary := extract.Summarize(in)
	s.bus.Publish(events.ExtractStarted(sess.ID, summary))

	result, err := client.Process(r.Context(), in)
	if err != nil {
		s.bus.Publish(events.ExtractFailed(sess.ID, err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if err := s.store.SetCurrent(sess.ID, result); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !result.Empty() {
		entry := sessions.HistoryEntry{Summary: summary, Result: result}
		if err := s.store.AppendHistory(sess.ID, entry); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.bus.Publish(events.ExtractCompleted(sess.ID, len(result.Tasks), len(result.Memos)))

	writeJSON(w, http.StatusOK, result)
}

// formMedia pulls an optional file part out of the multipart form.
func formMedia(r *http.Request, field string) (*extract.Media, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s part: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s data: %w", field, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &extract.Media{
		MIME: partMIME(header),
		Data: data,
	}, nil
}

func partMIME(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (s *Server) handleUpdateResult(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	var body struct {
		Tasks []extract.Task `json:"tasks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := s.store.Current(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	current.Tasks = body.Tasks
	if err := s.store.SetCurrent(sess.ID, current); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.bus.Publish(events.NewEventWithSession(events.EventResultUpdated, events.SourceGateway,
		map[string]any{"tasks": len(current.Tasks)}, sess.ID))
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	history, err := s.store.History(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	if err := s.store.Reset(sess.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.bus.Publish(events.NewEventWithSession(events.EventSessionReset, events.SourceGateway, nil, sess.ID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)

	result, err := s.store.Current(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var (
		body        []byte
		contentType string
		filename    string
	)

	switch format := chi.URLParam(r, "format"); format {
	case "json":
		body, err = export.JSON(result)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		contentType, filename = "application/json; charset=utf-8", export.JSONFile
	case "markdown":
		body, contentType, filename = []byte(export.Markdown(result)), "text/markdown; charset=utf-8", export.MarkdownFile
	case "tasks.csv":
		body, contentType, filename = []byte(export.TasksCSV(result.Tasks)), "text/csv; charset=utf-8", export.TasksFile
	case "memos.csv":
		body, contentType, filename = []byte(export.MemosCSV(result.Memos)), "text/csv; charset=utf-8", export.MemosFile
	default:
		writeError(w, http.StatusBadRequest, "unknown export format: "+format)
		return
	}

	// Empty CSV means nothing to export.
	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.bus.Publish(events.ExportWritten(sess.ID, []string{filename}))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(body)
}
