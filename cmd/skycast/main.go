package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"skycast/config"
	"skycast/internal/api"
	"skycast/internal/cache"
	"skycast/internal/lookup"
	"skycast/internal/mqtt"
	"skycast/internal/sky"
	"skycast/internal/storage"
	"skycast/internal/widget"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skycast",
		Short: "Weather widget service",
		Long:  "Look up city weather and render it as a themed widget with a live sun arc",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(sunCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the widget service",
		Long:  "Start the API server, the home city refresher and the MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if verbose {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			provider, err := lookup.NewProvider(cfg.Weather)
			if err != nil {
				return err
			}

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			log.Printf("Database opened at %s", cfg.Database.Path)

			reportCache, err := newCache(cfg.Cache)
			if err != nil {
				return err
			}

			service := lookup.NewService(lookup.ServiceConfig{
				Provider: provider,
				Cache:    reportCache,
				Database: db,
				CacheTTL: cfg.Cache.TTL,
			})

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
			})
			if err != nil {
				log.Printf("Warning: MQTT connection failed: %v", err)
				publisher, _ = mqtt.NewPublisher(mqtt.PublisherConfig{Enabled: false})
			} else if cfg.MQTT.Enabled {
				log.Printf("MQTT connected to %s", cfg.MQTT.Broker)
				if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
					log.Printf("Warning: Home Assistant discovery failed: %v", err)
				}
			}

			homeCtx, err := displayContext(cfg)
			if err != nil {
				return err
			}
			refresher := lookup.NewRefresher(lookup.RefresherConfig{
				Service:   service,
				Publisher: publisher,
				City:      cfg.Weather.HomeCity,
				Context:   homeCtx,
				Interval:  cfg.Refresher.Interval,
				Enabled:   cfg.Refresher.Enabled,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := refresher.Start(ctx); err != nil {
					log.Printf("Refresher error: %v", err)
				}
			}()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:       cfg.API.Port,
					Service:    service,
					Refresher:  refresher,
					Database:   db,
					Config:     cfg,
					ConfigPath: cfg.File,
				})

				go func() {
					if err := server.Start(); err != nil {
						log.Printf("API server error: %v", err)
					}
				}()
			}

			log.Printf("Skycast started with provider %s. Press Ctrl+C to stop.", provider.Name())

			<-sigChan
			log.Println("Shutting down...")
			cancel()

			if server != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Stop(shutdownCtx); err != nil {
					log.Printf("API shutdown error: %v", err)
				}
				shutdownCancel()
			}
			refresher.Stop()
			if closer, ok := reportCache.(interface{ Close() error }); ok {
				closer.Close()
			}

			return nil
		},
	}
}

func lookupCmd() *cobra.Command {
	var units, theme string

	cmd := &cobra.Command{
		Use:   "lookup <city>",
		Short: "Look up a city once and print the widget view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if units != "" {
				cfg.Display.Units = units
			}
			if theme != "" {
				cfg.Display.Theme = theme
			}

			provider, err := lookup.NewProvider(cfg.Weather)
			if err != nil {
				return err
			}
			wctx, err := displayContext(cfg)
			if err != nil {
				return err
			}

			service := lookup.NewService(lookup.ServiceConfig{Provider: provider})
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			view, err := service.Lookup(ctx, args[0], wctx)
			if err != nil {
				return fmt.Errorf("lookup failed: %w", err)
			}
			return printJSON(view)
		},
	}

	cmd.Flags().StringVarP(&units, "units", "u", "", "metric or imperial")
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "light or dark")
	return cmd
}

func sunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sun <sunrise> <sunset> <now>",
		Short: "Compute the sun indicator position",
		Long: "Compute the sun indicator position. All three times must be in the\n" +
			"location's local time, so now is required rather than read from this host's clock.",
		Example: `  skycast sun "06:00 AM" "06:00 PM" "2025-03-15 09:00"`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := sky.ComputeSunPosition(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return printJSON(pos)
		},
	}
}

func classifyCmd() *cobra.Command {
	var night bool
	var theme string

	cmd := &cobra.Command{
		Use:   "classify <code>",
		Short: "Classify a condition code and show its scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid condition code %q", args[0])
			}
			t, err := sky.ParseTheme(theme)
			if err != nil {
				return err
			}
			scene := sky.ResolveScene(code, !night, t)
			if verbose {
				return printJSON(map[string]interface{}{
					"scene":    scene,
					"schedule": sky.SpawnSchedule(scene.Profile),
				})
			}
			return printJSON(scene)
		},
	}

	cmd.Flags().BoolVar(&night, "night", false, "use the night palette")
	cmd.Flags().StringVarP(&theme, "theme", "t", "light", "light or dark")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	var clean time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if clean > 0 {
				removed, err := db.CleanOldSearches(clean)
				if err != nil {
					return fmt.Errorf("failed to clean searches: %w", err)
				}
				fmt.Printf("Removed %d searches older than %s\n", removed, clean)
			}

			searches, err := db.RecentSearches(limit)
			if err != nil {
				return fmt.Errorf("failed to read searches: %w", err)
			}
			if len(searches) == 0 {
				fmt.Println("No searches recorded yet")
				return nil
			}
			for _, s := range searches {
				fmt.Printf("%s  %-20s %-16s %6.1f°C  %s (%d)\n",
					s.SearchedAt.Format("2006-01-02 15:04"), s.City, s.Country, s.TempC, s.Category, s.ConditionCode)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of searches to show")
	cmd.Flags().DurationVar(&clean, "clean", 0, "delete searches older than this before listing")
	return cmd
}

func newCache(cfg config.CacheConfig) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), nil
	}
	r, err := cache.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Report cache backed by Redis")
	return r, nil
}

func displayContext(cfg *config.Config) (widget.Context, error) {
	units, err := widget.ParseUnits(cfg.Display.Units)
	if err != nil {
		return widget.Context{}, err
	}
	theme, err := sky.ParseTheme(cfg.Display.Theme)
	if err != nil {
		return widget.Context{}, err
	}
	wctx := widget.Context{Units: units, Theme: theme}
	if cfg.Home.Latitude != 0 || cfg.Home.Longitude != 0 {
		wctx.Home = &widget.Coordinates{Latitude: cfg.Home.Latitude, Longitude: cfg.Home.Longitude}
	}
	return wctx, nil
}

func printJSON(v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
