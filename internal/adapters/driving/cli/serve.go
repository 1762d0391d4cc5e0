package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ksef-desk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ksef-desk/internal/adapters/driving/web"
	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/services"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// portSearchRange is how many ports after the configured one are tried when
// it is already taken.
const portSearchRange = 20

// Serve flags.
var (
	servePort         int
	serveLAN          bool
	serveNoBrowser    bool
	serveNoTokenCache bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local web application (default)",
	Long: `Start the local HTTP server and open the page in the default browser.

The server listens on 127.0.0.1 only unless --lan is given. Stop it with
Ctrl+C or the Quit button on the page.`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (default from config, 8765)")
	cmd.Flags().BoolVar(&serveLAN, "lan", false, "listen on all interfaces instead of loopback")
	cmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "do not open the browser")
	cmd.Flags().BoolVar(&serveNoTokenCache, "no-token-cache", false, "authenticate on every request and never store tokens")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{
		configDir:    configDir,
		noTokenCache: serveNoTokenCache,
		prompt:       devicePrompt(cmd),
	})
	if err != nil {
		return err
	}
	defer a.shutdown()

	server := serverSettings(cmd, a.appSettings.Server)
	ln, err := listen(server, !cmd.Flags().Changed("port"))
	if err != nil {
		return err
	}
	url := pageURL(ln.Addr())

	printBanner(cmd, a, url, server.LAN)

	if server.OpenBrowser {
		if err := OpenBrowser(url); err != nil {
			logger.Warn("Could not open the browser: %v", err)
		}
	}

	srv := web.NewServer(a.orch, a.tokens, a.settings, a.editor, a.prefs, a.hub)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return srv.Serve(gctx, ln)
	})
	if a.appSettings.Refresh.Enabled {
		refresher := services.NewRefresher(a.orch, a.appSettings.Refresh.Interval)
		g.Go(func() error { return refresher.Start(gctx) })
	}
	if a.configPath != "" {
		watcher := file.NewWatcher(a.configPath, func(ctx context.Context) {
			reloadConfig(ctx, a)
		})
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Warn("Configuration changes will need a restart: %v", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	cmd.Println("Stopped.")
	return nil
}

// serverSettings applies command line overrides to the configured settings.
func serverSettings(cmd *cobra.Command, s domain.ServerSettings) domain.ServerSettings {
	if cmd.Flags().Changed("port") {
		s.Port = servePort
	}
	if serveLAN {
		s.LAN = true
	}
	if serveNoBrowser {
		s.OpenBrowser = false
	}
	return s
}

// listen binds the configured address. When the port is taken and was not
// chosen explicitly, the next free port in a small range is used instead.
func listen(s domain.ServerSettings, fallback bool) (net.Listener, error) {
	ln, err := net.Listen("tcp", s.Addr())
	if err == nil {
		return ln, nil
	}
	if !fallback {
		return nil, fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}

	host, _, _ := net.SplitHostPort(s.Addr())
	port, findErr := services.FindAvailablePort(host, s.Port+1, s.Port+portSearchRange)
	if findErr != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.Addr(), errors.Join(err, findErr))
	}
	logger.Warn("Port %d is in use, using %d", s.Port, port)
	s.Port = port
	return net.Listen("tcp", s.Addr())
}

// pageURL is the address a browser on this machine should open.
func pageURL(addr net.Addr) string {
	port := 0
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port)) + "/"
}

// reloadConfig re-reads the configuration after an outside edit and switches
// profile if active_profile changed. Server settings need a restart.
func reloadConfig(ctx context.Context, a *app) {
	if a.reload != nil {
		if err := a.reload(); err != nil {
			logger.Warn("Ignoring configuration change: %v", err)
			return
		}
	}
	if err := a.editor.Reapply(ctx); err != nil {
		logger.Warn("Configuration reloaded but the active profile could not be applied: %v", err)
		return
	}
	logger.Info("Configuration reloaded")
}

func printBanner(cmd *cobra.Command, a *app, url string, lan bool) {
	lines := []string{
		titleStyle.Render("ksef-desk " + version),
		"",
		field("Open", url),
	}
	if profile := a.orch.Profile(); profile.Name != "" {
		lines = append(lines, field("Profile", fmt.Sprintf("%s (NIP %s, %s)", profile.Name, profile.NIP, profile.Environment)))
	} else {
		lines = append(lines, field("Profile", warnStyle.Render("none configured")))
	}
	lines = append(lines, field("Config", a.configPath))
	if lan {
		lines = append(lines, "", warnStyle.Render("Listening on all interfaces: anyone on the network can use this session."))
	}

	body := strings.Join(lines, "\n")
	if isTerminal() {
		body = boxStyle.Render(body)
	}
	cmd.Println(body)
}
