package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"meetline/internal/authz"
	"meetline/internal/bot"
	"meetline/internal/calendar"
	"meetline/internal/config"
	"meetline/internal/db"
	"meetline/internal/domain"
	"meetline/internal/migrate"
	"meetline/internal/notify"
	"meetline/internal/repo"
	"meetline/internal/server"
	meetlinesdk "meetline/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "ml",
	Short: "Meetline CLI",
	Long: `Meetline schedules Google Meet meetings from terse chat commands.

A command looks like "<title> | <HH:MM> [DD/MM/YYYY] | [duration]"; times are
read at UTC+8 and a time already past today means tomorrow. Only chats on the
configured allow-list may schedule. Every handled command is recorded in the
workspace database ('ml schedule list', 'ml log tail').`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MEETLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(allowlistCmd())
}

// loadConfig reads meetline.yml and applies environment overrides once.
// MEETLINE_ALLOWED_CHATS and the secrets can live outside the file.
func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("allowed-chats"); v != "" {
		cfg.Bot.AllowedChats = v
	}
	if v := viper.GetString("webhook-secret"); v != "" {
		cfg.Bot.WebhookSecret = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Server.JWTSecret = v
	}
	if v := viper.GetString("client-id"); v != "" {
		cfg.Calendar.ClientID = v
	}
	if v := viper.GetString("client-secret"); v != "" {
		cfg.Calendar.ClientSecret = v
	}
	return cfg, nil
}

func openDB(workspace string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// newInserter wires the stored OAuth token into a Google calendar client.
func newInserter(ctx context.Context, conn *sql.DB, cfg *config.Config) (calendar.Inserter, error) {
	if cfg.Calendar.ClientID == "" || cfg.Calendar.ClientSecret == "" {
		return nil, errors.New("calendar.client_id and calendar.client_secret are required; set them in meetline.yml or MEETLINE_CLIENT_ID / MEETLINE_CLIENT_SECRET")
	}
	store := calendar.TokenStore{DB: conn}
	oauthCfg := calendar.OAuthConfig(cfg.Calendar.ClientID, cfg.Calendar.ClientSecret)
	ts, err := store.TokenSource(ctx, oauthCfg)
	if err != nil {
		if errors.Is(err, calendar.ErrNoToken) {
			return nil, errors.New("no Google token stored; run 'ml auth login' first")
		}
		return nil, err
	}
	return calendar.NewGoogleClient(ctx, ts, cfg.Calendar.ID)
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat webhook and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			conn, err := openDB(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			inserter, err := newInserter(cmd.Context(), conn, cfg)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("server.jwt_secret (or MEETLINE_JWT_SECRET) is required for the read endpoints")
			}
			b := bot.New(conn, cfg, inserter)
			handler, err := server.New(server.Config{
				Bot:      b,
				Notifier: notify.New(cfg.Bot.ReplyURL, cfg.Bot.WebhookSecret),
				BasePath: basePath,
				Auth: server.AuthConfig{
					JWTSecret:     cfg.Server.JWTSecret,
					WebhookSecret: cfg.Bot.WebhookSecret,
				},
			})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Listen
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Meetline API on http://%s%s (allow-list: %d chats)\n", addr, basePath, b.Allow.Len())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func sendCmd() *cobra.Command {
	var chatID int64
	var serverURL, secret string
	cmd := &cobra.Command{
		Use:   "send <command text>",
		Short: "Handle one command",
		Long:  "Runs one chat command through the pipeline, locally or against a running server with --server.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if serverURL != "" {
				client := meetlinesdk.New(serverURL)
				client.WebhookSecret = secret
				reply, err := client.PostMessage(cmd.Context(), chatID, text)
				if err != nil {
					return err
				}
				fmt.Println(reply)
				return nil
			}
			workspace := viper.GetString("workspace")
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			conn, err := openDB(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()
			inserter, err := newInserter(cmd.Context(), conn, cfg)
			if err != nil {
				return err
			}
			b := bot.New(conn, cfg, inserter)
			fmt.Println(b.HandleMessage(cmd.Context(), domain.IncomingMessage{ChatID: chatID, Text: text}))
			return nil
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "chat id to act as")
	cmd.Flags().StringVar(&serverURL, "server", "", "send via a running server instead of locally")
	cmd.Flags().StringVar(&secret, "secret", "", "webhook secret for --server")
	return cmd
}

func authCmd() *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Google authorization"}
	auth.AddCommand(authLoginCmd())
	return auth
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the OAuth consent flow and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			if cfg.Calendar.ClientID == "" || cfg.Calendar.ClientSecret == "" {
				return errors.New("calendar.client_id and calendar.client_secret are required")
			}
			conn, err := openDB(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()

			oauthCfg := calendar.OAuthConfig(cfg.Calendar.ClientID, cfg.Calendar.ClientSecret)
			url := oauthCfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
			fmt.Printf("Open this URL, authorize, then paste the code:\n%s\n\ncode: ", url)
			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			token, err := oauthCfg.Exchange(cmd.Context(), strings.TrimSpace(code))
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}
			store := calendar.TokenStore{DB: conn}
			if err := store.Save(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Println("Token stored.")
			return nil
		},
	}
	return cmd
}

func scheduleCmd() *cobra.Command {
	schedule := &cobra.Command{Use: "schedule", Short: "Scheduled meetings"}
	schedule.AddCommand(scheduleListCmd())
	return schedule
}

func scheduleListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSchedules(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Summary", "Status", "Chat", "Link"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.StartAt, s.Summary, s.Status, s.ChatID, s.MeetLink})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of schedules")
	return cmd
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of every handled command: creations, rejections, failures.",
	}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	}
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default meetline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(workspace, config.Default()); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
}

func allowlistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allowlist",
		Short: "Show the configured allow-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			list := authz.FromList(cfg.Bot.AllowedChats)
			if list.Len() == 0 {
				fmt.Println("allow-list is empty; nobody can schedule")
				return nil
			}
			for _, id := range list.IDs() {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := openDB(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
