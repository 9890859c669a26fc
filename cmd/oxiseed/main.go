// Command oxiseed fills the submissions collection with generated records so
// the listing and its pagination can be exercised without the form.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/config"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/db"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/service"
)

var (
	firstNames = []string{"Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Hank", "Ivy", "Jack", "Karen", "Leo", "Mona", "Nick", "Olivia", "Paul", "Quinn", "Rosa", "Sam", "Tina"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson", "Taylor", "Thomas", "Moore", "Jackson", "Martin", "Lee", "Harris", "Clark"}
	extensions = []string{"png", "jpg", "webp", "gif"}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		count   int
		seedVal int64
	)

	cmd := &cobra.Command{
		Use:          "oxiseed",
		Short:        "Insert generated submissions into the configured store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			cfg, err := config.New(config.DefaultPath)
			if err != nil {
				return err
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			repo, closeFn, err := openRepo(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			rng := rand.New(rand.NewSource(seedVal))
			if _, err := seed(ctx, repo, rng, count, cmd.OutOrStdout()); err != nil {
				return err
			}
			return report(ctx, repo, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 50, "number of submissions to insert")
	cmd.Flags().Int64Var(&seedVal, "seed", 42, "random seed")
	return cmd
}

// counter is implemented by both stores.
type counter interface {
	Count(ctx context.Context) (int, error)
}

// report prints the collection size after seeding when repo can count.
func report(ctx context.Context, repo service.SubmissionRepository, out io.Writer) error {
	c, ok := repo.(counter)
	if !ok {
		return nil
	}
	n, err := c.Count(ctx)
	if err != nil {
		return fmt.Errorf("count submissions: %w", err)
	}
	fmt.Fprintf(out, "collection now holds %d submissions\n", n)
	return nil
}

func openRepo(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SubmissionRepository, func(), error) {
	if cfg.Store == config.StoreMongo {
		client, err := db.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo := repository.NewMongoSubmissionRepo(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}

	pool, err := db.NewPool(cfg.OxiDBHost, cfg.OxiDBPort, 1, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to OxiDB: %w", err)
	}
	repo := repository.NewSubmissionRepo(pool)
	if err := repo.EnsureIndexes(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool.Close, nil
}

func generate(rng *rand.Rand, i int) *models.Submission {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]

	images := make([]string, 1+rng.Intn(3))
	for j := range images {
		images[j] = fmt.Sprintf("uploads/seed-%d-%d.%s", i, j, extensions[rng.Intn(len(extensions))])
	}

	now := time.Now().UTC()
	return &models.Submission{
		Name:         first + " " + last,
		SocialHandle: fmt.Sprintf("@%s%s%d", strings.ToLower(first), strings.ToLower(last[:1]), i),
		Images:       images,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// seed inserts n generated submissions one by one and reports progress to
// out. It returns how many were inserted before any error.
func seed(ctx context.Context, repo service.SubmissionRepository, rng *rand.Rand, n int, out io.Writer) (int, error) {
	start := time.Now()
	lastReport := start

	inserted := 0
	for inserted < n {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		if _, err := repo.Create(ctx, generate(rng, inserted)); err != nil {
			return inserted, fmt.Errorf("insert at %d: %w", inserted, err)
		}
		inserted++

		if time.Since(lastReport) >= 3*time.Second || inserted == n {
			elapsed := time.Since(start)
			rate := float64(inserted) / elapsed.Seconds()
			fmt.Fprintf(out, "  %6d / %d  %8.0f docs/s  %s\n",
				inserted, n, rate, elapsed.Round(time.Millisecond))
			lastReport = time.Now()
		}
	}
	return inserted, nil
}
