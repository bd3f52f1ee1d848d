// The serve subcommand, adapted from the teacher's
// cmd/go-hub/cmd/serve.go: load/init config, load or generate a TLS
// keypair, serve Prometheus metrics, and accept connections until
// SIGINT/SIGTERM triggers the hub's quiesce-then-stop lifecycle
// (SPEC_FULL.md §4.M).
package cmd

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/netutil"

	"github.com/direct-connect/adchub/hub"
	"github.com/direct-connect/adchub/internal/luaplugin"
	"github.com/direct-connect/adchub/internal/store"
	"github.com/direct-connect/adchub/internal/tlsadapter"
	"github.com/direct-connect/adchub/plugin"
)

// tlsServerConfig builds the hub-side *tls.Config, logging but not
// failing when alpn differs from tlsadapter's fixed "adc" protocol —
// ADC over TLS does not negotiate alternate application protocols.
func tlsServerConfig(cert tls.Certificate, alpn string) *tls.Config {
	if alpn != "" && alpn != tlsadapter.ALPNProtocol {
		log.Printf("adchub: configured ALPN %q ignored, using %q", alpn, tlsadapter.ALPNProtocol)
	}
	return tlsadapter.Config(cert, tls.VersionTLS12)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the hub",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("config", defaultConfigPath, "path to hub.yml")
	flags.String("name", "", "name of the hub (overrides config)")
	flags.String("host", "", "host or IP to listen and sign TLS certs for")
	flags.Int("port", 0, "port to listen on")
	flags.String("metrics-addr", ":2112", "address to serve Prometheus metrics on")
	flags.String("lua", "", "path to an optional Lua policy script")
	Root.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	cfg := hub.NewConfig()

	configPath, _ := flags.GetString("config")
	if err := cfg.ReadFile(configPath); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		log.Println("no config file found, using defaults:", configPath)
	}
	if name, _ := flags.GetString("name"); name != "" {
		cfg.Set(hub.KeyHubName, name)
	}
	if host, _ := flags.GetString("host"); host != "" {
		cfg.Set(hub.KeyServeHost, host)
	}
	if port, _ := flags.GetInt("port"); port != 0 {
		cfg.Set(hub.KeyServePort, port)
	}

	host := cfg.GetString(hub.KeyServeHost)
	port := cfg.GetInt(hub.KeyServePort)
	addr := fmt.Sprintf("%s:%d", host, port)

	cert, kp, err := loadOrGenerateCert(cfg.GetString(hub.KeyTLSCert), cfg.GetString(hub.KeyTLSKey), host)
	if err != nil {
		return fmt.Errorf("preparing TLS certificate: %w", err)
	}
	tlsConf := tlsServerConfig(cert, cfg.GetString(hub.KeyTLSALPN))

	policyHooks := []plugin.Hooks{plugin.NewMemory()}
	if luaPath, _ := flags.GetString("lua"); luaPath != "" {
		lp, err := luaplugin.Load(luaPath)
		if err != nil {
			return fmt.Errorf("loading lua policy: %w", err)
		}
		defer lp.Close()
		policyHooks = append(policyHooks, lp)
		log.Println("loaded lua policy:", luaPath)
	}
	policy := plugin.NewChain(policyHooks...)

	dbPath := "memory"
	st, err := store.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	h := hub.New(cfg, hub.NewNetSender(), policy)

	metricsAddr, _ := flags.GetString("metrics-addr")
	log.Println("serving metrics on", metricsAddr)
	go func() {
		if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
			log.Println("metrics server stopped:", err)
		}
	}()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()
	if max := cfg.GetInt(hub.KeyUsersMax); max > 0 {
		ln = netutil.LimitListener(ln, max)
	}

	fmt.Printf("\n[ Hub URI ]\nadcs://%s/?kp=%s\nadc://%s\n\n", addr, kp, addr)
	log.Println("listening on", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("quiescing hub")
		h.Quiesce()
		_ = ln.Close()
		h.Stop()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if h.State() == hub.Stopped {
				return nil
			}
			return err
		}
		if !h.AcceptsConnections() {
			conn.Close()
			continue
		}
		go h.HandleConn(conn, tlsConf)
	}
}
