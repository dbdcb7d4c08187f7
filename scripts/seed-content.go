package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koinonia/koinonia/internal/model"
	"github.com/koinonia/koinonia/internal/repository"
	"github.com/koinonia/koinonia/internal/service"
)

type output struct {
	Tags      []*model.Tag     `json:"tags"`
	Community *model.Community `json:"community,omitempty"`
}

func main() {
	var (
		databaseURL   = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		tagsInput     = flag.String("tags", "Grace,Faith,Prayer", "Comma-separated tag names to create")
		communityName = flag.String("community", "", "Community name to create (optional)")
		groupID       = flag.String("pco-group-id", "", "Planning Center group id for -community")
		format        = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *communityName != "" && *groupID == "" {
		fmt.Fprintln(os.Stderr, "-pco-group-id is required with -community")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	tags := service.NewTagService(repo)
	communities := service.NewCommunityService(repo)

	var out output
	for _, name := range splitNames(*tagsInput) {
		tag, err := tags.UpsertTag(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert tag %q: %v\n", name, err)
			os.Exit(1)
		}
		out.Tags = append(out.Tags, tag)
	}

	if *communityName != "" {
		c, err := communities.CreateCommunity(ctx, service.CreateCommunityInput{
			Name:       *communityName,
			PCOGroupID: *groupID,
		})
		switch {
		case errors.Is(err, service.ErrConflict):
			fmt.Fprintf(os.Stderr, "community for group %s already exists\n", *groupID)
		case err != nil:
			fmt.Fprintln(os.Stderr, "create community:", err)
			os.Exit(1)
		default:
			out.Community = c
		}
	}

	switch strings.ToLower(*format) {
	case "plain":
		for _, t := range out.Tags {
			fmt.Printf("tag\t%s\t%s\n", t.ID, t.Name)
		}
		if out.Community != nil {
			fmt.Printf("community\t%s\t%s\n", out.Community.ID, out.Community.Name)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func splitNames(input string) []string {
	parts := strings.Split(input, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}
