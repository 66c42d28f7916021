// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"
	"viroscope-server/commons"
	"viroscope-server/db"
	"viroscope-server/dispatcher"
	"viroscope-server/events"
	"viroscope-server/middlewares"
	"viroscope-server/routes"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	commons.LoadEnvFile()

	e := echo.New()
	e.HideBanner = true

	e.Logger.SetLevel(commons.Logger.Level())
	e.Logger.SetHeader("${time_rfc3339} ${level} ${short_file}:${line} -")

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logMsg := func(format string, args ...any) {
				switch {
				case v.Status >= 500:
					e.Logger.Errorf(format, args...)
				case v.Status >= 400:
					e.Logger.Warnf(format, args...)
				default:
					e.Logger.Infof(format, args...)
				}
			}
			logMsg("%s %s - %d - %.2fms - %s",
				v.Method,
				v.URI,
				v.Status,
				float64(v.Latency.Microseconds())/1000.0,
				v.RemoteIP,
			)
			return nil
		},
	}))
	debugMode := slices.Contains(os.Args[1:], "--debug")
	if debugMode {
		e.Logger.Warn("Debug mode is enabled.")
		e.Debug = true
		e.Logger.SetLevel(log.DEBUG)
	}

	e.Use(middleware.Recover())

	db.InitDB()
	if slices.Contains(os.Args[1:], "--migrate-db") {
		commons.Logger.Debug("--migrate-db flag detected, running migrations")
		db.MigrateDB()
	}

	e.Use(middlewares.Authenticate(middlewares.NewConfig()))

	d := dispatcher.New()

	if err := events.Init(); err != nil {
		commons.Logger.Error("Failed to initialize event publisher:", err)
		os.Exit(1)
	}

	var listener *dispatcher.Listener
	if amqpURL := commons.GetEnv("AMQP_URL"); amqpURL != "" {
		var err error
		listener, err = dispatcher.NewListener(
			amqpURL,
			commons.GetEnv("EVENTS_EXCHANGE", events.DefaultExchange),
			d,
		)
		if err != nil {
			commons.Logger.Error("Failed to connect event listener:", err)
			os.Exit(1)
		}
		if err := listener.Start(); err != nil {
			commons.Logger.Error("Failed to start event listener:", err)
			os.Exit(1)
		}
	}

	routes.RegisterRoutes(e, d)

	port := commons.GetEnv("PORT")
	if port == "" {
		port = ":8080"
	}
	if port[0] != ':' {
		port = ":" + port
	}

	go func() {
		if err := e.Start(port); err != nil {
			e.Logger.Info("Server stopped:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	commons.Logger.Info("Shutting down")

	// Live connections are closed before everything else so no handler
	// observes a half-closed registry.
	d.Close()
	if listener != nil {
		listener.Close()
	}
	events.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
