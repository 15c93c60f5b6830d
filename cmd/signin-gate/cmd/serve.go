package cmd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alexlup06-authgate/signin-go/cognito"
	"github.com/alexlup06-authgate/signin-go/redisstore"
	"github.com/alexlup06-authgate/signin-go/signin"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a content directory through the sign-in gate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, newLogger())
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("content-dir", ".", "directory of pages to serve")
	serveCmd.Flags().String("submit-path", signin.DefaultSubmitPath, "path of the form submission endpoint")
	serveCmd.Flags().String("logout-path", signin.DefaultLogoutPath, "path of the logout endpoint")
	serveCmd.Flags().String("store", "cookie", "session artifact store: cookie or redis")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "redis address when --store=redis")
	serveCmd.Flags().String("csrf-key", "", "HMAC key for anti-forgery tokens (random per process if empty)")
	serveCmd.Flags().String("csrf-key-id", "k1", "key id of --csrf-key")
	serveCmd.Flags().Bool("secure-cookies", false, "mark cookies Secure (serve over HTTPS)")
	serveCmd.Flags().Bool("disable-password-reset", false, "hide the forgot-password toggle")
	serveCmd.Flags().Duration("identity-timeout", 10*time.Second, "timeout of each identity provider call")
	serveCmd.Flags().String("cognito-endpoint", "", "custom Cognito endpoint, e.g. a local emulator")
	serveCmd.Flags().String("metrics-addr", "", "serve /metrics on a separate address (default: main listener)")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		log.Fatalf("%v", err)
	}
	RootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, log logr.Logger) error {
	prov := newSettings(log)
	prov.Watch()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := signin.NewMetrics(reg)

	store, closeStore, err := sessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	keyID, key, err := csrfKey(log)
	if err != nil {
		return err
	}

	factoryOpts := []cognito.Option{
		cognito.WithBaseDir(viper.GetString("base-dir")),
		cognito.WithLogger(log.WithName("cognito")),
	}
	if ep := viper.GetString("cognito-endpoint"); ep != "" {
		factoryOpts = append(factoryOpts, cognito.WithEndpoint(ep))
	}

	gate, err := signin.New(signin.Options{
		Settings:             prov,
		Identity:             cognito.NewFactory(factoryOpts...),
		Store:                store,
		CSRFKeys:             map[string][]byte{keyID: key},
		CSRFKeyID:            keyID,
		SubmitPath:           viper.GetString("submit-path"),
		LogoutPath:           viper.GetString("logout-path"),
		DisablePasswordReset: viper.GetBool("disable-password-reset"),
		SecureCookies:        viper.GetBool("secure-cookies"),
		IdentityTimeout:      viper.GetDuration("identity-timeout"),
		Logger:               log.WithName("gate"),
		Metrics:              metrics,
	})
	if err != nil {
		return err
	}

	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	mux := http.NewServeMux()
	mux.Handle(viper.GetString("submit-path"), gate.SubmitHandler())
	mux.Handle(viper.GetString("logout-path"), gate.LogoutHandler())
	mux.Handle("/", gate.Protect(http.FileServer(http.Dir(viper.GetString("content-dir")))))

	servers := []*http.Server{newServer(viper.GetString("addr"), mux)}
	if addr := viper.GetString("metrics-addr"); addr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		servers = append(servers, newServer(addr, metricsMux))
	} else {
		mux.Handle("/metrics", metricsHandler)
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(srv)
	}

	select {
	case err = <-errc:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Error(serr, "shutting down", "addr", srv.Addr)
		}
	}
	return err
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// sessionStore builds the configured artifact store. A nil store selects the
// gate's default cookie store.
func sessionStore(ctx context.Context) (signin.SessionStore, func(), error) {
	switch kind := viper.GetString("store"); kind {
	case "cookie", "":
		return nil, func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: viper.GetString("redis-addr")})
		store := redisstore.New(client, redisstore.WithSecureCookie(viper.GetBool("secure-cookies")))
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want cookie or redis)", kind)
	}
}

func csrfKey(log logr.Logger) (string, []byte, error) {
	id := viper.GetString("csrf-key-id")
	if k := viper.GetString("csrf-key"); k != "" {
		return id, []byte(k), nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", nil, err
	}
	log.Info("no --csrf-key given, using a random key; rendered forms will not survive a restart")
	return id, key, nil
}
