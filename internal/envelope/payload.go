package envelope

import "time"

// Empty is embedded by payloads that carry no data.
type Empty interface {
	Payload
	empty()
}

type Connected struct {
	UserID string `json:"userId"`
}

func (Connected) EnvelopeType() Type { return TypeConnected }

type Ping struct{}

func (Ping) EnvelopeType() Type { return TypePing }
func (Ping) empty()             {}

type Pong struct{}

func (Pong) EnvelopeType() Type { return TypePong }
func (Pong) empty()             {}

type StationRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type MembershipRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type LicensePlateScanned struct {
	LicensePlate   string        `json:"licensePlate"`
	WashingStation StationRef    `json:"washingStation"`
	Membership     MembershipRef `json:"membership"`
	ScannedAt      time.Time     `json:"scannedAt"`
}

func (LicensePlateScanned) EnvelopeType() Type { return TypeLicensePlateScanned }

type TestNotification struct {
	Message string `json:"message"`
}

func (TestNotification) EnvelopeType() Type { return TypeTestNotification }
