package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelroom/reelroom-server/internal/config"
	"github.com/reelroom/reelroom-server/internal/media"
)

// maxUploadBytes caps a single clip upload. Raw phone footage runs large,
// but nothing legitimate approaches this.
const maxUploadBytes = 4 << 30

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/status", statusHandler(cfg))
	r.Get("/logs", logsHandler(cfg))

	r.Route("/projects", func(r chi.Router) {
		r.Post("/", createProjectHandler(cfg))
		r.Get("/", listProjectsHandler(cfg))
		r.Get("/{id}", getProjectHandler(cfg))
		r.Post("/{id}/clips", uploadClipHandler(cfg))
		r.Get("/{id}/clips", listClipsHandler(cfg))
		r.Get("/{id}/export/plan", exportPlanHandler(cfg))
		r.Get("/{id}/export/edl", exportEDLHandler(cfg))
	})

	r.Route("/clips/{id}", func(r chi.Router) {
		r.Get("/", getClipHandler(cfg))
		r.Patch("/", updateClipHandler(cfg))
		r.Delete("/", deleteClipHandler(cfg))
		r.Post("/marks", createMarkHandler(cfg))
		r.Get("/marks", listMarksHandler(cfg))
		r.Get("/proxy", artifactHandler(cfg, artifactProxy))
		r.Get("/thumbnail", artifactHandler(cfg, artifactThumbnail))
	})

	r.Delete("/marks/{id}", deleteMarkHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := cfg.Service.CountClipsByStatus(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to count clips", "INTERNAL_ERROR")
			return
		}

		resp := StatusResponse{ClipCounts: counts}
		if cfg.Doctor != nil {
			tools := cfg.Doctor.Get(r.Context())
			resp.Tools = ToolStatusResponse{
				FFmpegAvailable:  tools.FFmpegAvailable,
				FFprobeAvailable: tools.FFprobeAvailable,
				FFmpegVersion:    tools.FFmpegVersion,
				ProbedAt:         tools.ProbedAt.Format(time.RFC3339),
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func logsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := LogsResponse{Entries: []LogEntryResponse{}}
		if cfg.LogSink != nil {
			for _, e := range cfg.LogSink.Entries() {
				resp.Entries = append(resp.Entries, LogEntryResponse{
					Time:    e.Time.Format(time.RFC3339),
					Level:   e.Level,
					Message: e.Message,
					Attrs:   e.Attrs,
				})
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := validate.Struct(req); err != nil {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}

		project, err := cfg.Service.CreateProject(r.Context(), req.Name)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ProjectToResponse(project))
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Service.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
			if counts, err := cfg.Service.ProjectClipCounts(r.Context(), p.ID); err == nil && len(counts) > 0 {
				resp.Projects[i].ClipCounts = counts
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := cfg.Service.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if project == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		resp := ProjectToResponse(project)
		if counts, err := cfg.Service.ProjectClipCounts(r.Context(), project.ID); err == nil && len(counts) > 0 {
			resp.ClipCounts = counts
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func uploadClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "multipart field 'file' is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		if !media.IsVideoFile(header.Filename) {
			WriteError(w, http.StatusBadRequest, "unsupported file type", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Service.Ingest(r.Context(), media.Upload{
			ProjectID: projectID,
			Filename:  header.Filename,
			Uploader:  r.FormValue("uploader"),
			Content:   file,
		})
		if errors.Is(err, media.ErrProjectNotFound) {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}

		// 202: the clip record exists but processing continues in the
		// background; poll the clip for status.
		WriteJSON(w, http.StatusAccepted, ClipToResponse(clip))
	}
}

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")
		sortMode := r.URL.Query().Get("sort")
		if sortMode == "" {
			sortMode = media.SortSmart
		}
		if !media.ValidSortMode(sortMode) {
			WriteError(w, http.StatusBadRequest, "unknown sort mode", "BAD_REQUEST")
			return
		}

		project, err := cfg.Service.GetProject(r.Context(), projectID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if project == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		clips, err := cfg.Service.SortedClips(r.Context(), projectID, sortMode)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list clips", "INTERNAL_ERROR")
			return
		}

		resp := ClipsResponse{Clips: make([]ClipResponse, len(clips))}
		for i, c := range clips {
			resp.Clips[i] = ClipToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, err := cfg.Service.GetClip(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req UpdateClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := validate.Struct(req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid field values", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Service.GetClip(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		if req.IncludeInExport != nil {
			if err := cfg.Service.SetClipInclude(r.Context(), id, *req.IncludeInExport); err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
		}
		if req.OrderIndex != nil {
			if err := cfg.Service.SetClipOrder(r.Context(), id, *req.OrderIndex); err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
		}

		clip, err = cfg.Service.GetClip(r.Context(), id)
		if err != nil || clip == nil {
			WriteError(w, http.StatusInternalServerError, "failed to reload clip", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteClip(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createMarkHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateMarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := validate.Struct(req); err != nil {
			WriteError(w, http.StatusBadRequest, "in must be >= 0 and out > in", "BAD_REQUEST")
			return
		}

		mark, err := cfg.Service.AddMark(r.Context(), chi.URLParam(r, "id"), req.In, req.Out)
		if errors.Is(err, media.ErrClipNotFound) {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		if errors.Is(err, media.ErrInvalidRange) {
			WriteError(w, http.StatusBadRequest, "range exceeds clip bounds", "BAD_REQUEST")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, MarkToResponse(mark))
	}
}

func listMarksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marks, err := cfg.Service.Marks(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := MarksResponse{Marks: make([]MarkResponse, len(marks))}
		for i, m := range marks {
			resp.Marks[i] = MarkToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func deleteMarkHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.RemoveMark(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exportPlanHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := cfg.Service.ProjectExportPlan(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, media.ErrProjectNotFound) {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, plan)
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "id")

		project, err := cfg.Service.GetProject(r.Context(), projectID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if project == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		plan, err := cfg.Service.ProjectExportPlan(r.Context(), projectID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		edl := media.GenerateEDL(plan, project.Name, 30)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="export.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

type artifactKind int

const (
	artifactProxy artifactKind = iota
	artifactThumbnail
)

func artifactHandler(cfg ServerConfig, kind artifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clip, err := cfg.Service.GetClip(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if clip == nil {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}
		if clip.Status != media.StatusReady {
			WriteError(w, http.StatusConflict, "clip is not ready", "NOT_READY")
			return
		}

		path := clip.ProxyPath
		if kind == artifactThumbnail {
			path = clip.ThumbnailPath
		}

		if err := cfg.Playback.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("artifact serve error", "error", err, "clip_id", clip.ID)
		}
	}
}
