package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/assessment"
	"github.com/secondlook/secondlook/internal/config"
	"github.com/secondlook/secondlook/internal/decision"
	"github.com/secondlook/secondlook/internal/form"
	"github.com/secondlook/secondlook/internal/history"
	"github.com/secondlook/secondlook/internal/logger"
	"github.com/secondlook/secondlook/internal/scoring"
	"github.com/secondlook/secondlook/internal/statement"
	"github.com/secondlook/secondlook/internal/txview"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "assess":
		runAssess(cfg)
	case "health":
		runHealth(cfg)
	case "inspect":
		runInspect(cfg)
	case "history":
		runHistory(cfg)
	case "clear-history":
		runClearHistory(cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("M-Pesa AI Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  assess          Score an M-Pesa statement for a loan request")
	fmt.Println("  health          Check the scoring backend and its model")
	fmt.Println("  inspect         Preview statement files before uploading")
	fmt.Println("  history         List past analyses")
	fmt.Println("  clear-history   Delete all past analyses")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// commonFlags registers the flags every command that talks to a backend or
// the history store shares.
func commonFlags(fs *flag.FlagSet, cfg *config.Config) *string {
	fs.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "Scoring backend base URL (or set SECONDLOOK_BACKEND_URL env)")
	fs.StringVar(&cfg.HistoryBackend, "history", cfg.HistoryBackend, "History backend: file, memory, bigquery or postgres")
	fs.StringVar(&cfg.HistoryDir, "history-dir", cfg.HistoryDir, "Directory for the file history backend")
	return fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
}

func runAssess(cfg config.Config) {
	fs := flag.NewFlagSet("assess", flag.ExitOnError)
	logLevel := commonFlags(fs, &cfg)
	name := fs.String("name", "", "Applicant full name")
	amount := fs.String("amount", "", "Requested loan amount in KES")
	term := fs.String("term", form.DefaultTerm, "Loan term in months: 3, 6, 12, 18 or 24")
	timeout := fs.Duration("timeout", 2*time.Minute, "Timeout for the scoring request")
	fs.StringVar(&cfg.GCSBucket, "bucket", cfg.GCSBucket, "GCS bucket for statement archival (or set GCS_BUCKET env)")
	mode := fs.String("view", string(txview.ModeTable), "Transaction view: table, grouped, timeline")
	sortField := fs.String("sort", "", "Sort transactions by field (e.g. date_iso, amount_in, balance)")
	desc := fs.Bool("desc", false, "Sort descending")
	typeFilter := fs.String("type", string(txview.FilterAll), "Transaction type: all, deposit, withdrawal")
	search := fs.String("q", "", "Search receipt numbers and descriptions")
	page := fs.Int("page", 1, "Table page to show")
	expand := fs.String("expand", "", "Comma-separated periods to expand in grouped view (e.g. 'Jan 2024')")
	fs.Parse(os.Args[2:])

	log := logger.NewWithLevel(*logLevel)

	if fs.NArg() == 0 {
		log.Fatal().Msg("Error: at least one statement file is required")
	}

	f := form.New()
	f.SetFullName(*name)
	f.SetLoanAmount(*amount)
	f.SetLoanTerm(*term)
	files := make([]form.File, 0, fs.NArg())
	for _, path := range fs.Args() {
		file, err := statement.Open(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read statement")
		}
		if !form.Accepted(file) {
			fmt.Fprintf(os.Stderr, "Skipping %s: %s\n", file.Name, form.MsgFileTypeRejected)
		}
		files = append(files, file)
	}
	f.AddFiles(files...)

	sub, errs := f.Submit()
	if errs != nil {
		renderValidation(os.Stderr, errs)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, closeHistory, err := config.OpenHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer closeHistory()

	var opts []assessment.Option
	archiver, closeArchiver, err := config.OpenArchiver(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement archiver")
	}
	defer closeArchiver()
	if archiver != nil {
		opts = append(opts, assessment.WithArchiver(archiver))
	}

	client := newClient(cfg, log, *timeout)
	ctrl := assessment.NewController(client, repo, log, opts...)

	fmt.Printf("Analyzing %s for %s (KES %s over %d months)...\n",
		sub.Statement.Name, sub.FullName, sub.Amount.StringFixed(2), sub.TermMonths)

	if err := ctrl.Submit(ctx, *sub); err != nil {
		log.Fatal().Err(err).Msg("Assessment failed")
	}

	st := ctrl.State()
	if st.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", st.Error)
		os.Exit(1)
	}

	if v := ctrl.DecisionView(); v != nil {
		renderDecision(os.Stdout, *v)
	}

	view := ctrl.UpdateView(func(s *txview.State) {
		s.SetMode(txview.Mode(*mode))
		if *sortField != "" {
			s.SortField, s.SortDir = *sortField, txview.Asc
			if *desc {
				s.SortDir = txview.Desc
			}
		}
		s.SetTypeFilter(txview.TypeFilter(*typeFilter))
		s.SetSearch(*search)
		for _, p := range config.SplitList(*expand) {
			s.TogglePeriod(p)
		}
		s.Page = *page
	})
	renderTransactions(os.Stdout, view)
}

func runHealth(cfg config.Config) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	logLevel := commonFlags(fs, &cfg)
	timeout := fs.Duration("timeout", 10*time.Second, "Timeout for the health check")
	fs.Parse(os.Args[2:])

	log := logger.NewWithLevel(*logLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := newClient(cfg, log, *timeout)
	h, err := client.Health(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("backend", client.BaseURL()).Msg("Backend health check failed")
	}

	fmt.Printf("Backend:  %s\n", client.BaseURL())
	fmt.Printf("Status:   %s\n", h.Status)
	fmt.Printf("Model:    %s (%s)\n", h.ModelStatus, h.ModelType)
	if h.Message != "" {
		fmt.Printf("Message:  %s\n", h.Message)
	}
	if h.Timestamp != "" {
		fmt.Printf("Checked:  %s\n", h.Timestamp)
	}
}

func runInspect(cfg config.Config) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.Parse(os.Args[2:])

	log := logger.NewWithLevel(*logLevel)

	if fs.NArg() == 0 {
		log.Fatal().Msg("Error: at least one file is required")
	}

	failed := false
	for i, path := range fs.Args() {
		if i > 0 {
			fmt.Println()
		}
		file, err := statement.Open(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to read file")
			failed = true
			continue
		}
		p, err := statement.Inspect(file)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("File could not be fully inspected")
		}
		renderPreview(os.Stdout, p)
	}
	if failed {
		os.Exit(1)
	}
}

func runHistory(cfg config.Config) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	logLevel := commonFlags(fs, &cfg)
	limit := fs.Int("limit", 0, "Show at most this many entries (0 = all)")
	fs.Parse(os.Args[2:])

	log := logger.NewWithLevel(*logLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, closeHistory, err := config.OpenHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer closeHistory()

	records, err := repo.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load history")
	}
	if *limit > 0 && len(records) > *limit {
		records = records[:*limit]
	}

	cards := make([]decision.HistoryCard, 0, len(records))
	for _, rec := range records {
		cards = append(cards, decision.RenderHistory(rec))
	}
	renderHistory(os.Stdout, cards)
}

func runClearHistory(cfg config.Config) {
	fs := flag.NewFlagSet("clear-history", flag.ExitOnError)
	logLevel := commonFlags(fs, &cfg)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(os.Args[2:])

	log := logger.NewWithLevel(*logLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, closeHistory, err := config.OpenHistory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer closeHistory()

	var confirmer history.Confirmer = promptConfirmer{in: os.Stdin, out: os.Stdout}
	if *yes {
		confirmer = history.ConfirmFunc(func(string) bool { return true })
	}

	cleared, err := history.ClearWithConfirmation(ctx, repo, confirmer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to clear history")
	}
	if !cleared {
		fmt.Println("History kept.")
		return
	}
	fmt.Println("History cleared.")
}

func newClient(cfg config.Config, log zerolog.Logger, timeout time.Duration) *scoring.Client {
	return scoring.NewClient(cfg.BackendURL,
		scoring.WithHTTPClient(&http.Client{Timeout: timeout}),
		scoring.WithLogger(log),
	)
}

// promptConfirmer asks on the terminal; anything but y/yes declines.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
