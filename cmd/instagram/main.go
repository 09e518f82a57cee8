package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	instagram "github.com/pocketvision/instagram-go"
)

func main() {
	profile := flag.String("profile", "", "Instagram username to analyze")
	videos := flag.String("videos", "", "Comma-separated Instagram video URLs to acquire")
	login := flag.Bool("login", false, "Force interactive login and save the session")
	stats := flag.String("stats", "", "Print stored stats for a profile username")
	report := flag.Bool("report", false, "Print engagement report over stored videos")
	top := flag.Int("top", 10, "Top performers to show in the report")
	outliers := flag.Float64("outliers", 0, "Outlier threshold multiplier (0 disables)")
	proxyURL := flag.String("proxy", "", "Proxy URL for media downloads (http/https/socks5)")
	flag.Parse()

	if *profile == "" && *videos == "" && *stats == "" && !*report && !*login {
		fmt.Fprintln(os.Stderr, "usage: instagram --profile <username> | --videos <url,...> | --stats <username> | --report [--top N] [--outliers T] | --login")
		os.Exit(1)
	}

	cfg := instagram.LoadConfig()
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	store, err := instagram.OpenStore(cfg.DatabasePath)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	failed := false

	if *login {
		s := instagram.New(cfg).WithLogger(logger)
		defer s.Close()
		if err := s.Login(ctx); err != nil {
			logger.Error("login", "error", err)
			os.Exit(1)
		}
		fmt.Println("Logged in, session saved.")
	}

	if *profile != "" {
		s := instagram.New(cfg).WithLogger(logger)
		defer s.Close()

		p, err := s.AnalyzeProfile(ctx, *profile)
		if err != nil {
			logger.Error("analyze profile", "username", *profile, "error", err)
			failed = true
		} else {
			if err := store.SaveProfile(ctx, p); err != nil {
				logger.Error("save profile", "error", err)
				failed = true
			}
			printProfile(p)
		}
	}

	if *videos != "" {
		vs := instagram.NewVideoScraper(cfg).WithLogger(logger)
		if *proxyURL != "" {
			if err := vs.SetProxy(*proxyURL); err != nil {
				logger.Error("set proxy", "error", err)
				os.Exit(1)
			}
		}

		// A failed URL does not abort the rest of the batch.
		for _, url := range strings.Split(*videos, ",") {
			url = strings.TrimSpace(url)
			if url == "" {
				continue
			}
			v, err := vs.ScrapeVideo(ctx, url)
			if err != nil {
				logger.Error("scrape video", "url", url, "error", err)
				failed = true
				continue
			}
			if err := store.UpsertVideo(ctx, v); err != nil {
				logger.Error("save video", "url", url, "error", err)
				failed = true
				continue
			}
			printVideo(v)
		}
	}

	if *stats != "" {
		ps, err := store.ProfileStats(ctx, *stats)
		if err != nil {
			logger.Error("profile stats", "username", *stats, "error", err)
			failed = true
		} else {
			printProfileStats(ps)
		}
	}

	if *report {
		all, err := store.ListVideos(ctx)
		if err != nil {
			logger.Error("list videos", "error", err)
			os.Exit(1)
		}
		printReport(all, *top, *outliers)
	}

	if failed {
		os.Exit(1)
	}
}

func printProfile(p instagram.Profile) {
	fmt.Printf("Username:  %s\n", p.Username)
	fmt.Printf("Name:      %s\n", p.FullName)
	fmt.Printf("Followers: %d\n", p.Followers)
	fmt.Printf("Following: %d\n", p.Following)
	fmt.Printf("Posts:     %d\n", p.Posts)
	fmt.Printf("Verified:  %v\n", p.Verified)
	fmt.Printf("Private:   %v\n", p.Private)
	if p.Biography != "" {
		fmt.Printf("Bio:       %s\n", p.Biography)
	}
}

func printVideo(v instagram.Video) {
	fmt.Printf("%s by @%s - %d views, %d likes (%.2f%%), %d comments (%.2f%%)\n",
		v.URL, v.Username, v.Views, v.Likes, v.LikesRate, v.Comments, v.CommentsRate)
	if v.Transcription != "" {
		fmt.Printf("  transcript: %s\n", truncate(v.Transcription, 120))
	}
}

func printProfileStats(ps instagram.ProfileStats) {
	fmt.Printf("@%s - %d videos, %d views, %d likes, %d comments\n",
		ps.Profile.Username, ps.TotalVideos, ps.TotalViews, ps.TotalLikes, ps.TotalComments)
	fmt.Printf("avg rates: likes %.2f%%, comments %.2f%%\n", ps.AvgLikesRate, ps.AvgCommentsRate)
	for i, v := range ps.RecentVideos {
		fmt.Printf("[%d] %s - %d views, likes %.2f%%, comments %.2f%%\n",
			i+1, v.URL, v.Views, v.LikesRate, v.CommentsRate)
	}
}

func printReport(videos []instagram.Video, top int, threshold float64) {
	stats := instagram.Aggregate(videos)
	fmt.Printf("Videos: %d\n", stats.TotalVideos)
	fmt.Printf("Likes rate:    avg %.2f%%  min %.2f%%  max %.2f%%\n",
		stats.AvgLikesRate, stats.MinLikesRate, stats.MaxLikesRate)
	fmt.Printf("Comments rate: avg %.2f%%  min %.2f%%  max %.2f%%\n",
		stats.AvgCommentsRate, stats.MinCommentsRate, stats.MaxCommentsRate)

	fmt.Printf("\nTop %d by combined rate:\n", top)
	for i, v := range instagram.TopPerformers(videos, top) {
		fmt.Printf("[%d] %s @%s - %.2f%%\n", i+1, v.URL, v.Username, v.LikesRate+v.CommentsRate)
	}

	if threshold > 0 {
		report := instagram.DetectOutliers(videos, threshold)
		fmt.Printf("\nOutliers (threshold %.1f, avg likes %.2f%%, avg comments %.2f%%):\n",
			report.Threshold, report.AvgLikesRate, report.AvgCommentsRate)
		for _, o := range report.Outliers {
			tag := "low"
			if o.IsHighPerformer {
				tag = "high"
			}
			fmt.Printf("- %s @%s - likes %.2f%%, comments %.2f%% [%s]\n",
				o.Video.URL, o.Video.Username, o.Video.LikesRate, o.Video.CommentsRate, tag)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
