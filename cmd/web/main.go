package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/op-tools/kpi-atlas/pkg/models/domain"
	"github.com/op-tools/kpi-atlas/pkg/server"
	"github.com/op-tools/kpi-atlas/pkg/services/analysis"
	"github.com/op-tools/kpi-atlas/pkg/services/config"
	"github.com/op-tools/kpi-atlas/pkg/services/ingest"
	"github.com/op-tools/kpi-atlas/pkg/services/mapping"
	"github.com/op-tools/kpi-atlas/pkg/services/narrative"
	"github.com/op-tools/kpi-atlas/pkg/services/parse"
	"github.com/op-tools/kpi-atlas/pkg/store/blob"
	"github.com/op-tools/kpi-atlas/pkg/store/duckdb"
	goalstore "github.com/op-tools/kpi-atlas/pkg/store/duckdb/goal"
	kpistore "github.com/op-tools/kpi-atlas/pkg/store/duckdb/kpi"
	reportstore "github.com/op-tools/kpi-atlas/pkg/store/duckdb/report"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the KPI Atlas web server",
		RunE:  runServer,
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: settings.DBPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	kpis, err := kpistore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create kpi store: %w", err)
	}
	goals, err := goalstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create goal store: %w", err)
	}
	reports, err := reportstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}

	table := mapping.DefaultTable()
	if settings.AliasTablePath != "" {
		table, err = mapping.LoadTable(settings.AliasTablePath)
		if err != nil {
			return fmt.Errorf("failed to load alias table: %w", err)
		}
		logger.Info().Str("path", settings.AliasTablePath).Msg("alias table loaded")
	}

	var blobs blob.Store
	if settings.S3Bucket != "" {
		blobs, err = blob.NewS3Store(ctx, settings.S3Bucket, settings.S3Prefix)
		if err != nil {
			return fmt.Errorf("failed to create s3 blob store: %w", err)
		}
		logger.Info().Str("bucket", settings.S3Bucket).Msg("storing uploads in S3")
	} else {
		blobs, err = blob.NewLocalStore(settings.UploadDir)
		if err != nil {
			return fmt.Errorf("failed to create local blob store: %w", err)
		}
	}

	mapper := mapping.NewMapper(table, kpis)
	ingestor := ingest.NewIngestor(parse.NewParser(), mapper, blobs, db, reports)
	comparator := analysis.NewComparator(reports, goals, domain.AnalyzerConfig{
		AnomalyThreshold: settings.AnomalyThreshold,
	})
	narrator := narrative.NewGenerator(narrative.Config{
		APIKey:   settings.OpenAIAPIKey,
		Model:    settings.OpenAIModel,
		Endpoint: settings.OpenAIEndpoint,
		Timeout:  settings.OpenAITimeout,
	})

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:   net.JoinHostPort(settings.ServerHost, settings.ServerPort),
		APIKey: settings.APIKey,
		Dependencies: server.Dependencies{
			Uploader: ingestor,
			Comparer: comparator,
			Narrator: narrator,
			Reports:  reports,
			KPIs:     kpis,
			Goals:    goals,
		},
	})

	return webAPI.Start()
}
