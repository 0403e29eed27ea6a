package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePosition records one observed curtain position.
//
// This is the primary telemetry write: the bridge calls it for every
// status frame, including repeats, so the series captures polling
// cadence as well as movement. The write is non-blocking; points are
// batched and sent asynchronously.
//
// Parameters:
//   - address: Device address in hex form (e.g. "0x06FE")
//   - position: Normalized position 0-100
//
// Example:
//
//	client.WritePosition("0x06FE", 75)
func (c *Client) WritePosition(address string, position int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"curtain_position",
		map[string]string{
			"address": address,
		},
		map[string]interface{}{
			"position": position,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("hub_stats",
//	    map[string]string{"hub": "192.168.1.50:32"},
//	    map[string]interface{}{"frames_valid": 1523, "reconnects": 2})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
