// Package influxdb provides InfluxDB connectivity for the curtain daemon.
//
// It wraps the official influxdb-client-go v2 library with the daemon's
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage of curtain position telemetry.
// Every status frame the coordinator decodes becomes one point, so the
// series records both movement and polling cadence. The integration is
// optional and config-gated; when disabled the daemon runs without it.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "slatehome",
//	    Bucket:  "curtains",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record an observed position
//	client.WritePosition("0x06FE", 75)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes, which is
// what lets position writes happen on the coordinator's notification
// workers without stalling frame processing.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead for chatty links.
package influxdb
