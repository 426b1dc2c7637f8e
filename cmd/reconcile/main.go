// Command reconcile repairs drifted like and comment counters once and exits.
package main

import (
	"context"
	"log"
	"time"

	"witwaves/internal/bootstrap"
	"witwaves/internal/config"
	"witwaves/internal/repository"
	"witwaves/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	r := service.NewReconciler(repository.NewPostRepository(rt.DB), rt.Invalidator)
	n, err := r.Run(ctx)
	if err != nil {
		log.Printf("Reconcile failed: %v", err)
		return
	}
	log.Printf("Repaired counters on %d posts", n)
}
