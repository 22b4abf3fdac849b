package service

import (
	"grillstream/internal/logger"
	"grillstream/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// HistoryForwarder receives a copy of every reading, fire-and-forget. A
// forwarding failure never touches the live path.
type HistoryForwarder interface {
	Forward(r models.Reading)
	Close()
}

// NopForwarder discards readings. Used when the historical store is
// disabled in config.
type NopForwarder struct{}

func (NopForwarder) Forward(models.Reading) {}
func (NopForwarder) Close()                 {}

// InfluxConfig is the historical store connection surface.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxForwarder ships readings to the historical store through the
// non-blocking write API: points are batched and flushed asynchronously,
// write errors are logged off the hot path.
type InfluxForwarder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	log      *logger.Logger
	done     chan struct{}
}

func NewInfluxForwarder(cfg InfluxConfig, log *logger.Logger) *InfluxForwarder {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	f := &InfluxForwarder{
		client:   client,
		writeAPI: writeAPI,
		log:      log,
		done:     make(chan struct{}),
	}
	go f.drainErrors()
	return f
}

func (f *InfluxForwarder) drainErrors() {
	errCh := f.writeAPI.Errors()
	for {
		select {
		case <-f.done:
			return
		case err, ok := <-errCh:
			if !ok {
				return
			}
			f.log.Warnw("history forward failed", "err", err)
		}
	}
}

// Forward queues one reading. Non-blocking.
func (f *InfluxForwarder) Forward(r models.Reading) {
	point := write.NewPoint(
		"reading",
		map[string]string{
			"device_id":  r.DeviceID,
			"channel_id": r.ChannelID,
			"unit":       r.Unit,
		},
		map[string]interface{}{
			"temperature": r.Temperature,
		},
		r.Timestamp,
	)
	f.writeAPI.WritePoint(point)
}

// Close flushes pending points and shuts the client down.
func (f *InfluxForwarder) Close() {
	close(f.done)
	f.writeAPI.Flush()
	f.client.Close()
}
