package metrics

import (
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// AlarmsTotal counts countdown zero crossings.
	AlarmsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hydrate_alarms_total",
			Help: "Total drink reminders fired",
		},
	)

	// CommandsTotal counts writes to the bottle by command and result.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hydrate_commands_total",
			Help: "Total commands sent to the bottle",
		},
		[]string{"command", "result"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hydrate_command_duration_seconds",
			Help:    "Command write duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"command"},
	)

	DeviceConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrate_device_connected",
			Help: "1 when the bottle accepted the last command",
		},
	)

	ReminderRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hydrate_reminder_remaining_seconds",
			Help: "Seconds until the next reminder, 0 when stopped",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AlarmsTotal,
		CommandsTotal,
		CommandDuration,
		DeviceConnected,
		ReminderRemaining,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
