package main

import (
	"complaintbot/backend/internal/api/handler"
	"complaintbot/backend/internal/app"
	"complaintbot/backend/internal/complaint"
	"complaintbot/backend/internal/config"
	"complaintbot/backend/internal/database"
	"complaintbot/backend/internal/errs"
	"complaintbot/backend/internal/events"
	"complaintbot/backend/internal/feed"
	"complaintbot/backend/internal/localization"
	"complaintbot/backend/internal/models"
	"complaintbot/backend/internal/notify"
	"complaintbot/backend/internal/storage"
	"complaintbot/backend/internal/telegram"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const descriptionWidth = 60

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// session is a complaint service over the configured store. Status changes are
// pushed to reporters when a bot token is configured.
type session struct {
	Complaints *complaint.Service
	close      func()
}

// lockedHint explains ErrStoreLocked: the running bot owns the file store.
const lockedHint = "stop the bot first, or change statuses through the HTTP API (POST /api/v1/complaints/<id>/resolve|reject)"

// openRecords opens the record store. A read-only open of the file store is a
// snapshot that works while the bot is running.
func openRecords(cfg *config.Config, readOnly bool) (storage.RecordStore, error) {
	if readOnly && cfg.StoreDriver == config.StoreDriverFile {
		snapshot, err := storage.OpenFileSnapshot(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return snapshot, nil
	}
	records, _, err := app.OpenRecords(cfg)
	if errors.Is(err, errs.ErrStoreLocked) {
		return nil, fmt.Errorf("%w; %s", err, lockedHint)
	}
	return records, err
}

func openSession(cfg *config.Config, readOnly bool) (*session, error) {
	records, err := openRecords(cfg, readOnly)
	if err != nil {
		return nil, err
	}
	loc, err := localization.NewLocalizer(cfg.DefaultLang)
	if err != nil {
		records.Close()
		return nil, err
	}

	var (
		messenger notify.Messenger
		publisher events.Publisher
		broadcast notify.Broadcaster
		rdb       *redis.Client
	)
	if cfg.BotToken != "" {
		bot, err := telegram.NewBotAPI(cfg.BotToken, false)
		if err != nil {
			log.Printf("WARN: reporters will not be notified: %v", err)
		} else {
			messenger = telegram.NewClient(bot)
		}
	}
	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if producer.Enabled() {
		publisher = producer
	}
	// with redis the event reaches dashboards connected to the running bot
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		broadcast = feed.NewManager(rdb)
	}

	dispatcher := notify.NewDispatcher(nil, publisher, broadcast, messenger, loc, cfg.DeliveryTimeout)
	return &session{
		Complaints: complaint.NewService(records, dispatcher),
		close: func() {
			dispatcher.Wait()
			producer.Close()
			if rdb != nil {
				rdb.Close()
			}
			records.Close()
		},
	}, nil
}

func (s *session) Close() { s.close() }

func listCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := models.Status(status)
			if st != "" && !st.Valid() {
				return fmt.Errorf("unknown status %q (New, Resolved, Rejected)", status)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openSession(cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.Complaints.List(cmd.Context(), st, limit)
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", string(models.StatusNew), "filter by status; empty lists all")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of complaints")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openSession(cfg, true)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Complaints.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printDetail(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func statusCmd(use, short string, status models.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openSession(cfg, false)
			if err != nil {
				return err
			}
			defer s.Close()

			rec, err := s.Complaints.ChangeStatus(cmd.Context(), id, status)
			if errors.Is(err, errs.ErrStatusFinal) && rec != nil {
				return fmt.Errorf("complaint #%d is already %s", id, rec.Status)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "complaint #%d is now %s\n", rec.ID, statusLabel(rec.Status))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator token for the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.OperatorID == 0 {
				return errors.New("ADMIN_CHAT_ID is required")
			}
			if cfg.APIJWTSecret == "" {
				return errors.New("API_JWT_SECRET is required")
			}
			token, err := handler.GenerateToken([]byte(cfg.APIJWTSecret), cfg.OperatorID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", config.OperatorTokenTTL, "token lifetime")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Println("migrate up: ok")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			v, err := database.Version(cfg.DatabaseURL())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	})
	return cmd
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Fold the status log into the record log (file store only, bot stopped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverFile {
				return fmt.Errorf("compact works on the file store, not %q", cfg.StoreDriver)
			}
			store, err := storage.OpenFileStore(cfg.StorePath)
			if errors.Is(err, errs.ErrStoreLocked) {
				return fmt.Errorf("%w; stop the bot first", err)
			}
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Compact(context.Background()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted %s\n", store.Path())
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid complaint id %q", raw)
	}
	return id, nil
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusResolved:
		return color.New(color.FgGreen).Sprint(s)
	case models.StatusRejected:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgYellow).Sprint(s)
	}
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityUrgent:
		return color.New(color.FgHiRed, color.Bold).Sprint(s)
	case models.SeverityHigh:
		return color.New(color.FgRed).Sprint(s)
	case models.SeverityMedium:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgCyan).Sprint(s)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printRecords(w io.Writer, records []models.ComplaintRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no complaints")
		return
	}
	for _, rec := range records {
		fmt.Fprintf(w, "#%d  %s  %s  %s  %s  %s\n",
			rec.ID, statusLabel(rec.Status), severityLabel(rec.Severity),
			rec.Object, rec.Aspect, rec.IncidentDateTime)
		fmt.Fprintf(w, "    @%s at %s: %s\n", rec.ReporterHandle, rec.Location, truncate(rec.Description, descriptionWidth))
	}
}

func printDetail(w io.Writer, rec *models.ComplaintRecord) {
	fmt.Fprintf(w, "Complaint #%d  %s\n", rec.ID, statusLabel(rec.Status))
	fmt.Fprintf(w, "  Reporter:       @%s (%d)\n", rec.ReporterHandle, rec.ReporterID)
	fmt.Fprintf(w, "  Object:         %s\n", rec.Object)
	fmt.Fprintf(w, "  Aspect:         %s\n", rec.Aspect)
	fmt.Fprintf(w, "  Incident:       %s at %s\n", rec.IncidentDateTime, rec.Location)
	fmt.Fprintf(w, "  Severity:       %s\n", severityLabel(rec.Severity))
	fmt.Fprintf(w, "  Recommendation: %s\n", rec.Recommendation)
	fmt.Fprintf(w, "  Filed:          %s\n", rec.FiledAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  Description:\n    %s\n", rec.Description)
}
