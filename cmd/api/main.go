package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gimelstudio/gsnodes/internal/api"
	"github.com/gimelstudio/gsnodes/internal/config"
	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/host"
	"github.com/gimelstudio/gsnodes/internal/mqtt"
	"github.com/gimelstudio/gsnodes/internal/plugin"
	"github.com/gimelstudio/gsnodes/internal/storage/postgres"
	"github.com/gimelstudio/gsnodes/internal/version"
)

func main() {
	path := os.Getenv("GS_CONFIG")
	if path == "" {
		path = "studio.yaml"
	}

	cfg, err := config.LoadStudioConfig(path)
	if err != nil {
		log.Fatalf("failed to load %s: %v", path, err)
	}

	catalog := plugin.Builtins().Filter(cfg.PluginEnabled)
	session := host.NewSession(catalog)

	var store *postgres.Client
	if cfg.Storage.Postgres {
		store, err = postgres.New(postgres.ConnString(config.MustResolveSecret("PGPASSWORD")), cfg.ProjectID())
		if err != nil {
			log.Printf("postgres unavailable, running without persistence: %v", err)
			store = nil
		}
	}

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "node host starting", map[string]interface{}{
		"service":  "gsnodes",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
	})
	for _, name := range catalog.Names() {
		events.Emit("info", "plugin.registered", "", map[string]interface{}{"type": name})
	}

	restoredNodes := 0
	if store != nil {
		state, restored, err := host.RestoreFromEvents(store, cfg.Storage.RestoreLimit)
		if err != nil {
			log.Printf("restore failed: %v", err)
		}
		if err := session.ApplyRestoredState(state); err != nil {
			log.Printf("%v", err)
		}
		if state != nil {
			restoredNodes = len(state.Order)
			host.EmitStartupRestore(restored, cfg.ProjectID())
		}
		// Persist only after replay so restored history is not appended again.
		events.SetStore(store)
	}

	if restoredNodes > 0 {
		events.Emit("info", "project.restored", "", map[string]interface{}{
			"nodes":      restoredNodes,
			"project_id": cfg.ProjectID(),
		})
	} else if cfg.Project.File != "" {
		project, err := host.LoadProject(cfg.Project.File)
		if err != nil {
			log.Fatalf("failed to load project: %v", err)
		}
		if err := session.ApplyProject(project); err != nil {
			log.Fatalf("failed to apply project: %v", err)
		}
	}

	mqttClient := mqtt.NewClient(
		cfg.MQTTURL(),
		"gsnodes-"+hostname,
		os.Getenv("MQTT_USERNAME"),
		config.MustResolveSecret("MQTT_PASSWORD"),
	)
	subscriber := mqtt.NewCommandSubscriber(mqttClient, session, cfg.MQTTTopic())
	go mqttClient.Start(subscriber)

	tlsConfig, err := config.LoadTLS()
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	api.SetTLS(tlsConfig)
	api.SetCatalog(catalog)
	api.SetSession(session)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		events.Emit("info", "system.shutdown", "node host stopping", nil)
		events.CloseAllSubscribers()
		mqttClient.Disconnect()
		if store != nil {
			store.Close()
		}
		os.Exit(0)
	}()

	if err := api.ListenAndServe(cfg.APIPort()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("api server failed: %v", err)
	}
}
