package web

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"dupes-go/internal/dupes"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server exposes a read-only web view of the file index: a duplicates
// listing, free-text search, and a CSV export.
type Server struct {
	index  dupes.Index
	logger dupes.Logger
	tmpl   *template.Template
}

// NewServer creates a web server over the given index. A nil logger
// disables logging.
func NewServer(index dupes.Index, logger dupes.Logger) (*Server, error) {
	if logger == nil {
		logger = dupes.NewNopLogger()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	return &Server{
		index:  index,
		logger: logger,
		tmpl:   tmpl,
	}, nil
}

// Handler returns the route table for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDuplicates)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/download", s.handleDownload)
	return mux
}

// pageData is the template context for files.html.
type pageData struct {
	Title       string
	SearchRoute string
	SearchQuery string
	Files       []*dupes.FileRecord
}

// parseSort maps the user-supplied sort parameter onto the closed sort
// enum. Unknown values fall back to sorting by hash.
func parseSort(r *http.Request) (dupes.RecordSort, bool) {
	descending := r.URL.Query().Get("desc") == "1"
	switch r.URL.Query().Get("sort") {
	case "path":
		return dupes.SortByPath, descending
	case "size":
		return dupes.SortBySize, descending
	case "modified":
		return dupes.SortByModified, descending
	case "checked":
		return dupes.SortByChecked, descending
	default:
		return dupes.SortByHash, descending
	}
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sort, desc := parseSort(r)
	files, err := s.index.AllRecords(dupes.RecordQuery{
		DuplicatesOnly: true,
		Sort:           sort,
		Descending:     desc,
	})
	if err != nil {
		s.logger.Error("querying duplicates", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, pageData{
		Title:       "Duplicate Files",
		SearchRoute: "duplicates",
		Files:       files,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")

	sort, desc := parseSort(r)
	files, err := s.index.AllRecords(dupes.RecordQuery{
		Search:     query,
		Sort:       sort,
		Descending: desc,
	})
	if err != nil {
		s.logger.Error("searching records", "error", err, "query", query)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, pageData{
		Title:       "Search Files",
		SearchRoute: "search",
		SearchQuery: query,
		Files:       files,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	files, err := s.index.AllRecords(dupes.RecordQuery{
		DuplicatesOnly: true,
		Sort:           dupes.SortByHash,
	})
	if err != nil {
		s.logger.Error("querying duplicates for export", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=duplicates.csv`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"hash", "path", "size", "last_modified", "last_checked"})
	for _, f := range files {
		cw.Write([]string{
			f.Hash,
			f.Path,
			strconv.FormatInt(f.Size, 10),
			f.ModifiedAt.UTC().Format("2006-01-02 15:04:05"),
			f.LastCheckedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("writing csv export", "error", err)
	}
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "files.html", data); err != nil {
		s.logger.Error("rendering template", "error", err)
	}
}
