package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/burakmyildiz/covertovert/controller"
	"github.com/burakmyildiz/covertovert/controller/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	// Network transports selectable from the client
	_ "github.com/burakmyildiz/covertovert/controller/channel/transport/pcapCapture"
	_ "github.com/burakmyildiz/covertovert/controller/channel/transport/rawSocket"
)

func main() {

	//Intercept the kill signal to ensure proper shutdown
	//of the process
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	var (
		p     *int    = flag.Int("p", 3000, "the port for the webpage and websocket")
		debug *bool   = flag.Bool("debug", false, "enable debug logging")
		dir   *string = flag.String("static", "client/build", "the directory served at /")
	)
	flag.Parse()

	observability.InitLogger("covertovert", *debug)

	ctr, err := controller.CreateController()
	if err != nil {
		log.Fatal().Err(err).Msg("create controller")
	}
	//Create each of the possible websocket connections
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ws", ctr.HandleFunc)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", http.FileServer(http.Dir(*dir)))

	defer func() {
		if err := ctr.Shutdown(); err != nil {
			log.Error().Err(err).Msg("controller shutdown")
		}
	}()

	srv := &http.Server{Addr: ":" + strconv.Itoa(*p), Handler: mux}

	log.Info().Int("port", *p).Msg("http server started")

	//Go routine to listen to kill signals for this process
	go func() {
		<-signalChan
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	//Start and listen for websocket connections
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("ListenAndServe")
	}
	log.Info().Msg("Shutting down")
}
