package gifp4

import (
	_ "embed"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// maxFormSize limits the body of a submit request.
const maxFormSize = 1024

var (
	//go:embed html/index.html
	homePage []byte

	//go:embed html/not_found.html
	notFoundPage []byte
)

type Server struct {
	index  *Index
	logger *zap.Logger
}

// NewServer returns a new Server using index i and logger l.
// If l is nil, nothing is logged.
func NewServer(i *Index, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}

	return &Server{
		index:  i,
		logger: l,
	}
}

// SetupRoutes registers the submit and view handlers on the router.
func (s *Server) SetupRoutes(r chi.Router) {
	r.Use(s.logRequests)

	r.Get("/", s.home)
	r.Get("/submit", s.home)
	r.Post("/submit", s.submit)
	r.Get("/{token}", func(w http.ResponseWriter, r *http.Request) {
		// tokens may carry a file extension so that embedders treat the page as media
		token, _, _ := strings.Cut(chi.URLParam(r, "token"), ".")
		s.view(w, r, token)
	})

	r.NotFound(s.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// logRequests logs every request once it has been served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("served request",
			zap.String("method", r.Method),
			zap.String("URI", r.RequestURI),
			zap.Int("status", ww.Status()),
			zap.Int("size", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

// writeError logs err and replies with a bare status.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusOK, homePage)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, http.StatusNotFound, notFoundPage)
}

// submit handles the form posted from the home page. Both URLs must point at
// Discord attachments; their suffixes are registered and the client is sent to
// the new preview page.
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if xerrors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "form too large", err)
			return
		}
		s.writeError(w, http.StatusBadRequest, "could not parse form", err)
		return
	}

	preview, ok := cdnSuffix(r.PostForm.Get("preview"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "preview is not a Discord attachment URL", nil)
		return
	}
	video, ok := cdnSuffix(r.PostForm.Get("content"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "content is not a Discord attachment URL", nil)
		return
	}

	id, err := s.index.Register(r.Context(), preview, video)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "error registering link", err)
		return
	}

	s.logger.Info("registered link", zap.Stringer("id", id), zap.String("preview", preview), zap.String("video", video))

	http.Redirect(w, r, "/"+FormatID(id), http.StatusSeeOther)
}

// view renders the preview page of the link named by token.
func (s *Server) view(w http.ResponseWriter, r *http.Request, token string) {
	id, ok := ParseID(token)
	if !ok {
		s.notFound(w, r)
		return
	}

	link, ok, err := s.index.Resolve(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "error resolving link", err)
		return
	}
	if !ok {
		s.notFound(w, r)
		return
	}

	page := PreviewPage(link)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(page.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := page.WriteTo(w); err != nil {
		s.logger.Debug("client went away while sending page", zap.Stringer("id", id), zap.Error(err))
	}
}

// cdnSuffix returns the part of a Discord attachment URL after "/attachments/".
// The preview page puts it back behind the CDN base, so the suffix must not
// carry anything that would break out of an HTML attribute.
func cdnSuffix(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	if !isDiscordHost(strings.ToLower(u.Hostname())) {
		return "", false
	}

	suffix, ok := strings.CutPrefix(u.EscapedPath(), "/attachments/")
	if !ok || suffix == "" {
		return "", false
	}
	if u.RawQuery != "" {
		suffix += "?" + u.RawQuery
	}
	if strings.ContainsAny(suffix, `"<>`) {
		return "", false
	}
	return suffix, true
}

func isDiscordHost(host string) bool {
	for _, domain := range []string{"discordapp.com", "discordapp.net"} {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
