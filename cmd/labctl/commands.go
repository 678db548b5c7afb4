package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"github.com/lychee-technology/labdb/dtds/sl"
	"github.com/lychee-technology/labdb/factory"
	"github.com/lychee-technology/labdb/internal"
	"github.com/lychee-technology/labdb/internal/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// storeOpener opens the store and returns a func that releases it.
type storeOpener func(ctx context.Context, cfg *labdb.Config) (*labdb.Store, func(), error)

func openStore(ctx context.Context, cfg *labdb.Config) (*labdb.Store, func(), error) {
	pool, err := internal.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	store, err := factory.NewStore(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func newInitDBCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the labdb tables, indexes and seed rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := internal.NewPool(ctx, opts.cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to create database pool: %w", err)
			}
			defer pool.Close()

			err = pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
				return internal.ApplySchema(ctx, tx)
			})
			if err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			if err := factory.VerifySchema(ctx, pool); err != nil {
				return err
			}
			zap.S().Infow("database initialized", "database", opts.cfg.Database.Database, "tables", len(labdb.RequiredTables()))
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", opts.cfg.Database.Database)
			return nil
		},
	}
}

func newCreateUserCmd(opts *rootOptions) *cobra.Command {
	var passwdFile string
	cmd := &cobra.Command{
		Use:   "create-user <login>",
		Short: "Provision a labdb user from the system password database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entry, err := lookupPasswd(ctx, passwdFile, args[0])
			if err != nil {
				return fmt.Errorf("lookup %s: %w", args[0], err)
			}
			store, release, err := opts.openStore(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer release()

			u, err := store.Users.CreateUserFromPasswd(ctx, entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s) id=%d\n", u.Username, u.FullName(), u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&passwdFile, "passwd-file", defaultPasswdFile, "passwd file to read the account from")
	return cmd
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the mapped model names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range labdb.ModelNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	var (
		since  time.Duration
		until  string
		bucket string
	)
	cmd := &cobra.Command{
		Use:   "archive-results",
		Short: "Export test results to Parquet and upload them to S3",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			to := time.Now().UTC()
			if until != "" {
				t, err := time.Parse(time.RFC3339, until)
				if err != nil {
					return labdb.NewValidationError("until", err.Error())
				}
				to = t
			}
			if since <= 0 {
				return labdb.NewValidationError("since", "must be a positive duration")
			}
			cfg := opts.cfg.Archive
			if bucket != "" {
				cfg.S3Bucket = bucket
			}

			ctx := cmd.Context()
			uploader, err := archive.NewS3Uploader(ctx, cfg)
			if err != nil {
				return err
			}
			if cfg.S3Endpoint != "" {
				if err := archive.EndpointHealthCheck(ctx, cfg.S3Endpoint, 5*time.Second); err != nil {
					return err
				}
			}
			store, release, err := opts.openStore(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer release()

			archiver := archive.NewArchiver(cfg, store.Tests, archive.NewParquetWriter(), uploader, nil)
			report, err := archiver.Archive(ctx, to.Add(-since), to)
			if err != nil {
				return err
			}
			if report.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results in window")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d results to %s (%d bytes)\n", report.Count, report.URI, report.Bytes)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "length of the window ending at --until")
	cmd.Flags().StringVar(&until, "until", "", "end of the window (RFC 3339, default now)")
	cmd.Flags().StringVar(&bucket, "bucket", "", "override archive.s3Bucket")
	return cmd
}

func newSLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sl <file>",
		Short: "Validate a WAP Service Loading document and print it normalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := sl.Parse(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return doc.Render(cmd.OutOrStdout())
		},
	}
}
