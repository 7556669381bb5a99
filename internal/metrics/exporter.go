// internal/metrics/exporter.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/modbus-climate/internal/climate"
	"github.com/tamzrod/modbus-climate/internal/poller"
)

// Exporter mirrors poll reports into Prometheus gauges.
type Exporter struct {
	reg *prometheus.Registry

	temperature       *prometheus.GaugeVec
	targetTemperature *prometheus.GaugeVec
	humidity          *prometheus.GaugeVec
	targetHumidity    *prometheus.GaugeVec
	auxHeat           *prometheus.GaugeVec
	health            *prometheus.GaugeVec
	hvacMode          *prometheus.GaugeVec

	errors     *prometheus.GaugeVec
	resets     *prometheus.GaugeVec
	reconnects *prometheus.GaugeVec
	devices    *prometheus.GaugeVec
}

var deviceLabels = []string{"climate", "device"}

func New() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),

		temperature:       deviceGauge("climate_temperature_celsius", "Current temperature"),
		targetTemperature: deviceGauge("climate_target_temperature_celsius", "Target temperature"),
		humidity:          deviceGauge("climate_humidity_percent", "Current humidity"),
		targetHumidity:    deviceGauge("climate_target_humidity_percent", "Target humidity"),
		auxHeat:           deviceGauge("climate_aux_heat", "Auxiliary heater on (1) or off (0)"),
		health:            deviceGauge("climate_health", "Device health code (0 unknown, 1 ok, 2 error)"),
		hvacMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "climate_hvac_mode",
			Help: "1 for the current HVAC mode of a device",
		}, []string{"climate", "device", "mode"}),

		errors:     climateGauge("climate_modbus_errors", "Consecutive Modbus errors"),
		resets:     climateGauge("climate_modbus_resets", "Transport resets since start"),
		reconnects: climateGauge("climate_modbus_reconnects", "Transport reconnects since start"),
		devices:    climateGauge("climate_devices", "Devices found on the connection"),
	}

	e.reg.MustRegister(
		e.temperature, e.targetTemperature, e.humidity, e.targetHumidity,
		e.auxHeat, e.health, e.hvacMode,
		e.errors, e.resets, e.reconnects, e.devices,
	)
	return e
}

func deviceGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, deviceLabels)
}

func climateGauge(name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"climate"})
}

// Registry exposes the private registry (for tests and custom handlers).
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// Publish implements poller.Publisher.
func (e *Exporter) Publish(r poller.Report) {
	id := r.ClimateID

	e.errors.WithLabelValues(id).Set(float64(r.Engine.Errors))
	e.resets.WithLabelValues(id).Set(float64(r.Engine.Resets))
	e.reconnects.WithLabelValues(id).Set(float64(r.Engine.Reconnects))
	e.devices.WithLabelValues(id).Set(float64(r.Engine.Devices))

	for _, d := range r.Devices {
		st := d.State
		e.health.WithLabelValues(id, st.Name).Set(float64(d.Status.Health))

		setOptional(e.temperature, id, st.Name, st.CurrentTemperature)
		setOptional(e.targetTemperature, id, st.Name, st.TargetTemperature)
		setOptional(e.humidity, id, st.Name, st.CurrentHumidity)
		setOptional(e.targetHumidity, id, st.Name, st.TargetHumidity)

		if st.AuxHeat != nil {
			v := 0.0
			if *st.AuxHeat {
				v = 1
			}
			e.auxHeat.WithLabelValues(id, st.Name).Set(v)
		}

		e.setMode(id, st.Name, st.HVACMode)
	}
}

func (e *Exporter) setMode(id, device string, mode climate.HVACMode) {
	e.hvacMode.DeletePartialMatch(prometheus.Labels{"climate": id, "device": device})
	if mode != "" {
		e.hvacMode.WithLabelValues(id, device, string(mode)).Set(1)
	}
}

func setOptional(g *prometheus.GaugeVec, id, device string, v *float64) {
	if v == nil {
		g.DeleteLabelValues(id, device)
		return
	}
	g.WithLabelValues(id, device).Set(*v)
}
