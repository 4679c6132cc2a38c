package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"skycast/config"
	"skycast/internal/lookup"
	"skycast/internal/sky"
	"skycast/internal/storage"
	"skycast/internal/weather"
	"skycast/internal/widget"
	"skycast/web"
)

const defaultProfile = "default"

type Server struct {
	router      *gin.Engine
	server      *http.Server
	service     *lookup.Service
	refresher   *lookup.Refresher
	db          *storage.Database
	wallpapers  *wallpaperSource
	port        int
	config      *config.Config
	configPath  string
	configMutex sync.RWMutex
}

type ServerConfig struct {
	Port       int
	Service    *lookup.Service
	Refresher  *lookup.Refresher
	Database   *storage.Database
	Config     *config.Config
	ConfigPath string
}

func NewServer(cfg ServerConfig) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	conf := cfg.Config
	if conf == nil {
		conf = &config.Config{}
	}

	s := &Server{
		router:     router,
		service:    cfg.Service,
		refresher:  cfg.Refresher,
		db:         cfg.Database,
		wallpapers: newWallpaperSource(),
		port:       cfg.Port,
		config:     conf,
		configPath: cfg.ConfigPath,
	}

	s.setupRoutes()
	return s
}

var templateFuncs = template.FuncMap{
	"css": func(value string) template.CSS { return template.CSS(value) },
	"km": func(value *float64) string {
		if value == nil {
			return ""
		}
		return strconv.FormatFloat(*value, 'f', 1, 64)
	},
}

func (s *Server) setupRoutes() {
	tmpl := template.Must(template.New("").Funcs(templateFuncs).ParseFS(web.Templates, "templates/*.html"))
	s.router.SetHTMLTemplate(tmpl)

	s.router.GET("/", s.indexHandler)
	s.router.HEAD("/", s.indexHandler)
	s.router.GET("/health", s.healthHandler)

	api := s.router.Group("/api/v1")
	{
		api.GET("/weather", s.weatherHandler)
		api.GET("/weather/home", s.homeWeatherHandler)
		api.GET("/sun", s.sunHandler)
		api.GET("/conditions/:code", s.conditionHandler)
		api.GET("/conditions/:code/schedule", s.scheduleHandler)
		api.GET("/preferences", s.getPreferenceHandler)
		api.PUT("/preferences", s.updatePreferenceHandler)
		api.GET("/searches", s.searchesHandler)
		api.GET("/searches/top", s.topCitiesHandler)
		api.GET("/background/wallpaper", s.backgroundWallpaperHandler)

		api.GET("/config/weather", s.getWeatherConfigHandler)
		api.PUT("/config/weather", s.updateWeatherConfigHandler)
		api.GET("/config/background", s.getBackgroundConfigHandler)
		api.PUT("/config/background", s.updateBackgroundConfigHandler)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}

	log.Printf("API server starting on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) indexHandler(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	data := gin.H{
		"title":    "Skycast",
		"city":     city,
		"fallback": sky.BackgroundFor(sky.CategoryDefault, true, sky.ThemeLight).CSS(),
	}

	wctx, err := s.widgetContext(c)
	if err != nil {
		data["units"], data["theme"] = string(widget.Metric), string(sky.ThemeLight)
		data["error"] = err.Error()
		c.HTML(http.StatusBadRequest, "index.html", data)
		return
	}
	data["units"], data["theme"] = string(wctx.Units), string(wctx.Theme)

	if city == "" {
		c.HTML(http.StatusOK, "index.html", data)
		return
	}

	view, err := s.service.Lookup(c.Request.Context(), city, wctx)
	if err != nil {
		status, message := lookupError(err)
		data["error"] = message
		c.HTML(status, "index.html", data)
		return
	}
	data["title"] = fmt.Sprintf("Skycast - %s", view.Marker.Label)
	data["view"] = view
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) healthHandler(c *gin.Context) {
	provider := ""
	if s.service != nil {
		if p := s.service.Provider(); p != nil {
			provider = p.Name()
		}
	}

	refreshing := false
	var lastRefresh time.Time
	if s.refresher != nil {
		refreshing = s.refresher.IsRefreshing()
		_, lastRefresh = s.refresher.Latest()
	}

	body := gin.H{
		"status":     "healthy",
		"provider":   provider,
		"refreshing": refreshing,
		"timestamp":  time.Now(),
	}
	if !lastRefresh.IsZero() {
		body["last_refresh"] = lastRefresh
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) weatherHandler(c *gin.Context) {
	wctx, err := s.widgetContext(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := strings.TrimSpace(c.GetHeader("X-Session-ID"))
	if session == "" {
		session = c.ClientIP()
	}

	view, err := s.service.LookupLatest(c.Request.Context(), session, c.Query("city"), wctx)
	if err != nil {
		status, message := lookupError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Weather lookup for %q failed: %v", c.Query("city"), err)
		}
		c.JSON(status, gin.H{"error": message})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) homeWeatherHandler(c *gin.Context) {
	if s.refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Home refresher is not configured"})
		return
	}
	view, updatedAt := s.refresher.Latest()
	if view == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No data available yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"city":       s.refresher.City(),
		"updated_at": updatedAt,
		"view":       view,
	})
}

func (s *Server) sunHandler(c *gin.Context) {
	// now must share the location's local frame with sunrise and sunset,
	// which this host's clock does not.
	now := c.Query("now")
	if now == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "now is required, as local time at the location"})
		return
	}
	pos, err := sky.ComputeSunPosition(c.Query("sunrise"), c.Query("sunset"), now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) conditionHandler(c *gin.Context) {
	scene, ok := sceneFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scene)
}

func (s *Server) scheduleHandler(c *gin.Context) {
	scene, ok := sceneFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":     scene.Code,
		"category": scene.Category,
		"profile":  scene.Profile,
		"spawns":   sky.SpawnSchedule(scene.Profile),
	})
}

func sceneFromRequest(c *gin.Context) (sky.Scene, bool) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid condition code"})
		return sky.Scene{}, false
	}
	isDay := true
	if v := c.Query("day"); v != "" {
		if isDay, err = strconv.ParseBool(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'day' value"})
			return sky.Scene{}, false
		}
	}
	theme, err := sky.ParseTheme(c.DefaultQuery("theme", string(sky.ThemeLight)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return sky.Scene{}, false
	}
	return sky.ResolveScene(code, isDay, theme), true
}

type PreferenceRequest struct {
	Units string `json:"units" binding:"required"`
	Theme string `json:"theme" binding:"required"`
}

func (s *Server) getPreferenceHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}
	profile := c.DefaultQuery("profile", defaultProfile)
	pref, err := s.db.GetPreference(profile)
	if errors.Is(err, storage.ErrNoPreference) {
		defaults := s.displayDefaults()
		c.JSON(http.StatusOK, gin.H{
			"profile": profile,
			"units":   defaults.Units,
			"theme":   defaults.Theme,
			"stored":  false,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile": pref.Profile,
		"units":   pref.Units,
		"theme":   pref.Theme,
		"stored":  true,
	})
}

func (s *Server) updatePreferenceHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	units, err := widget.ParseUnits(req.Units)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	theme, err := sky.ParseTheme(req.Theme)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref := &storage.Preference{
		Profile: c.DefaultQuery("profile", defaultProfile),
		Units:   string(units),
		Theme:   string(theme),
	}
	if err := s.db.SavePreference(pref); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"profile": pref.Profile,
		"units":   pref.Units,
		"theme":   pref.Theme,
		"stored":  true,
	})
}

func (s *Server) searchesHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}
	limit := queryLimit(c, 20, 100)
	searches, err := s.db.RecentSearches(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, searches)
}

func (s *Server) topCitiesHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}
	counts, err := s.db.TopCities(queryLimit(c, 5, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 || limit > max {
		return def
	}
	return limit
}

// widgetContext resolves units and theme from the query string, then the
// stored profile preference, then the configured display defaults.
func (s *Server) widgetContext(c *gin.Context) (widget.Context, error) {
	defaults := s.displayDefaults()
	unitsValue, themeValue := defaults.Units, defaults.Theme

	if s.db != nil {
		pref, err := s.db.GetPreference(c.DefaultQuery("profile", defaultProfile))
		switch {
		case err == nil:
			unitsValue, themeValue = pref.Units, pref.Theme
		case !errors.Is(err, storage.ErrNoPreference):
			log.Printf("Preference lookup failed: %v", err)
		}
	}
	if v := c.Query("units"); v != "" {
		unitsValue = v
	}
	if v := c.Query("theme"); v != "" {
		themeValue = v
	}

	var wctx widget.Context
	var err error
	if unitsValue != "" {
		if wctx.Units, err = widget.ParseUnits(unitsValue); err != nil {
			return widget.Context{}, err
		}
	}
	if themeValue != "" {
		if wctx.Theme, err = sky.ParseTheme(themeValue); err != nil {
			return widget.Context{}, err
		}
	}

	s.configMutex.RLock()
	home := s.config.Home
	s.configMutex.RUnlock()
	if home.Latitude != 0 || home.Longitude != 0 {
		wctx.Home = &widget.Coordinates{Latitude: home.Latitude, Longitude: home.Longitude}
	}
	return wctx, nil
}

func (s *Server) displayDefaults() config.DisplayConfig {
	s.configMutex.RLock()
	defer s.configMutex.RUnlock()
	return s.config.Display
}

// lookupError maps lookup failures to a status and a user-facing message.
func lookupError(err error) (int, string) {
	var apiErr *weather.APIError
	switch {
	case errors.Is(err, weather.ErrEmptyCity):
		return http.StatusBadRequest, "Please enter a city name!"
	case errors.Is(err, weather.ErrLocationNotFound):
		return http.StatusNotFound, "Weather info not found"
	case errors.Is(err, lookup.ErrSuperseded):
		return http.StatusConflict, "Request superseded by a newer search"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Weather provider timed out"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "Weather provider error"
	default:
		return http.StatusInternalServerError, "Weather lookup failed"
	}
}
