package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"skycast/internal/widget"
)

// device is the topic segment under the prefix; the refresher only ever
// publishes the configured home city.
const device = "home"

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "skycast"
	}
	// brokers drop the older session when two clients share an id
	clientID = fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8])

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

// Values flattens a view into the per-topic payloads. Sun values are left out
// when the view has no sun position.
func Values(view *widget.View) map[string]string {
	values := map[string]string{
		"temperature_c": fmt.Sprintf("%.1f", celsius(view)),
		"temperature_f": fmt.Sprintf("%.1f", fahrenheit(view)),
		"condition":     view.Current.Condition,
		"category":      view.Scene.Category.String(),
		"humidity":      fmt.Sprintf("%d", view.Current.Humidity),
		"wind_kph":      fmt.Sprintf("%.1f", windKph(view)),
		"is_day":        fmt.Sprintf("%t", view.Scene.IsDay),
	}
	if view.Sun != nil {
		values["sun_x"] = fmt.Sprintf("%.2f", view.Sun.XPercent)
		values["sun_y"] = fmt.Sprintf("%.2f", view.Sun.YOffset)
		values["sun_opacity"] = fmt.Sprintf("%.1f", view.Sun.Opacity)
	}
	return values
}

func (p *Publisher) Publish(view *widget.View) error {
	if !p.enabled {
		return nil
	}
	if view == nil {
		return fmt.Errorf("nothing to publish")
	}

	values := Values(view)
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		topic := p.topic(name)
		token := p.client.Publish(topic, 0, false, values[name])
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v", topic, token.Error())
		}
	}

	statusJSON, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	token := p.client.Publish(p.topic("status"), 0, true, statusJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish status: %w", token.Error())
	}

	return nil
}

type sensor struct {
	Name        string
	ID          string
	Unit        string
	DeviceClass string
}

var sensors = []sensor{
	{"Temperature", "temperature_c", "°C", "temperature"},
	{"Temperature (F)", "temperature_f", "°F", "temperature"},
	{"Condition", "condition", "", ""},
	{"Sky Category", "category", "", ""},
	{"Humidity", "humidity", "%", "humidity"},
	{"Wind Speed", "wind_kph", "km/h", "wind_speed"},
	{"Daytime", "is_day", "", ""},
	{"Sun Position", "sun_x", "%", ""},
	{"Sun Height", "sun_y", "px", ""},
	{"Sun Opacity", "sun_opacity", "", ""},
}

// discoveryConfig builds the Home Assistant discovery payload for one sensor.
func (p *Publisher) discoveryConfig(s sensor) map[string]interface{} {
	config := map[string]interface{}{
		"name":        fmt.Sprintf("Skycast %s", s.Name),
		"unique_id":   fmt.Sprintf("skycast_%s_%s", device, s.ID),
		"state_topic": p.topic(s.ID),
		"device": map[string]interface{}{
			"identifiers":  []string{"skycast_" + device},
			"name":         "Skycast Home Weather",
			"manufacturer": "Skycast",
			"model":        "Weather Widget",
		},
	}
	if s.Unit != "" {
		config["unit_of_measurement"] = s.Unit
	}
	if s.DeviceClass != "" {
		config["device_class"] = s.DeviceClass
	}
	return config
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	for _, s := range sensors {
		discoveryTopic := fmt.Sprintf("homeassistant/sensor/skycast/%s/config", s.ID)
		payload, err := json.Marshal(p.discoveryConfig(s))
		if err != nil {
			return fmt.Errorf("failed to marshal discovery for %s: %w", s.ID, err)
		}
		token := p.client.Publish(discoveryTopic, 0, true, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish discovery for %s: %v", s.ID, token.Error())
		}
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}

func (p *Publisher) topic(name string) string {
	return fmt.Sprintf("%s/%s/%s", p.topicPrefix, device, name)
}

func celsius(view *widget.View) float64 {
	if view.Units == widget.Imperial {
		return (view.Current.Temperature - 32) * 5 / 9
	}
	return view.Current.Temperature
}

func fahrenheit(view *widget.View) float64 {
	if view.Units == widget.Imperial {
		return view.Current.Temperature
	}
	return view.Current.Temperature*9/5 + 32
}

func windKph(view *widget.View) float64 {
	if view.Units == widget.Imperial {
		return view.Current.Wind * 1.609344
	}
	return view.Current.Wind
}
