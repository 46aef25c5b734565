package engine

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// InitializeSchedules starts all the cron jobs (currently just one), stop the returned cron on shutdown
func (serverHandler *ServerHandler) InitializeSchedules() (*cron.Cron, error) {
	renderer := serverHandler.ServerConfig.RendererConfig

	c := cron.New()
	var sweepJob cron.Job
	sweepJob = cron.FuncJob(serverHandler.sweepJobFunc)
	sweepJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(sweepJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %s", renderer.BlobSweepInterval), sweepJob); err != nil {
		Logger.Error("Unable to schedule object URL sweep", "interval", renderer.BlobSweepInterval, "error", err)
		return nil, err
	}
	Logger.Info("Adding object URL sweep scheduler", "interval", renderer.BlobSweepInterval, "ttl", renderer.BlobTTL)
	c.Start()
	return c, nil
}

// sweepJobFunc revokes object URLs nobody released within the TTL
func (serverHandler *ServerHandler) sweepJobFunc() {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in object URL sweep", "panic", r)
		}
	}()
	removed := serverHandler.Blobs.Sweep(serverHandler.ServerConfig.BlobTTL)
	if removed > 0 {
		Logger.Info("Swept abandoned object URLs", "removed", removed, "remaining", serverHandler.Blobs.Len())
	}
}
