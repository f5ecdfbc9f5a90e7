package vrp

import "fmt"

// Client is an immutable client (or depot, at index 0) record.
type Client struct {
	X, Y Coordinate

	DemandWeight  Load
	DemandVolume  Load
	DemandSalvage Salvage

	// ClientOrder and ClientStore are optional tags, -1 meaning "no tag".
	// ClientStore feeds the route-store-count limit and cumulatedStores.
	ClientOrder int
	ClientStore int

	ServiceDuration Duration
	TWEarly, TWLate Duration

	Prize    Cost
	Required bool
}

// NewClient validates and constructs a Client. Negative demands, a
// negative service duration, an inverted time window, a negative prize,
// or an order/store tag below -1 are all fail-fast construction errors
// (spec §7.1).
func NewClient(
	x, y Coordinate,
	demandWeight, demandVolume Load,
	demandSalvage Salvage,
	clientOrder, clientStore int,
	serviceDuration Duration,
	twEarly, twLate Duration,
	prize Cost,
	required bool,
) (Client, error) {
	if demandWeight < 0 {
		return Client{}, fmt.Errorf("vrp: demandWeight must be >= 0, got %d", demandWeight)
	}
	if demandVolume < 0 {
		return Client{}, fmt.Errorf("vrp: demandVolume must be >= 0, got %d", demandVolume)
	}
	if demandSalvage < 0 {
		return Client{}, fmt.Errorf("vrp: demandSalvage must be >= 0, got %d", demandSalvage)
	}
	if clientOrder < -1 {
		return Client{}, fmt.Errorf("vrp: clientOrder must be >= -1, got %d", clientOrder)
	}
	if clientStore < -1 {
		return Client{}, fmt.Errorf("vrp: clientStore must be >= -1, got %d", clientStore)
	}
	if serviceDuration < 0 {
		return Client{}, fmt.Errorf("vrp: serviceDuration must be >= 0, got %d", serviceDuration)
	}
	if twEarly > twLate {
		return Client{}, fmt.Errorf("vrp: twEarly (%d) must be <= twLate (%d)", twEarly, twLate)
	}
	if prize < 0 {
		return Client{}, fmt.Errorf("vrp: prize must be >= 0, got %d", prize)
	}

	return Client{
		X: x, Y: y,
		DemandWeight:    demandWeight,
		DemandVolume:    demandVolume,
		DemandSalvage:   demandSalvage,
		ClientOrder:     clientOrder,
		ClientStore:     clientStore,
		ServiceDuration: serviceDuration,
		TWEarly:         twEarly,
		TWLate:          twLate,
		Prize:           prize,
		Required:        required,
	}, nil
}

// ProblemData is an immutable snapshot of a CVRPTW instance: clients
// (depot at index 0), fleet capacities, and distance/duration matrices.
type ProblemData struct {
	clients []Client
	dist    Matrix[Distance]
	dur     Matrix[Duration]

	numVehicles     int
	weightCapacity  Load
	volumeCapacity  Load
	salvageCapacity Salvage
	routeStoreLimit Store

	centroidX, centroidY float64
}

// NewProblemData validates and constructs a ProblemData snapshot. clients
// must include the depot at index 0; both matrices must be square of side
// len(clients) (spec §7.2).
func NewProblemData(
	clients []Client,
	numVehicles int,
	weightCap, volumeCap Load,
	salvageCap Salvage,
	routeStoreLimit Store,
	dist Matrix[Distance],
	dur Matrix[Duration],
) (*ProblemData, error) {
	if len(clients) < 2 {
		return nil, fmt.Errorf("vrp: need a depot plus at least one client, got %d entries", len(clients))
	}
	n := len(clients)
	if dist.Size() != n {
		return nil, fmt.Errorf("vrp: distance matrix side %d does not match %d clients (incl. depot)", dist.Size(), n)
	}
	if dur.Size() != n {
		return nil, fmt.Errorf("vrp: duration matrix side %d does not match %d clients (incl. depot)", dur.Size(), n)
	}
	for i := 0; i < n; i++ {
		if dist.Get(i, i) != 0 {
			return nil, fmt.Errorf("vrp: distance matrix diagonal must be zero, dist[%d][%d]=%d", i, i, dist.Get(i, i))
		}
	}
	if numVehicles < 1 {
		return nil, fmt.Errorf("vrp: numVehicles must be >= 1, got %d", numVehicles)
	}

	var sumX, sumY float64
	for _, c := range clients[1:] {
		sumX += float64(c.X)
		sumY += float64(c.Y)
	}
	numClients := float64(n - 1)
	var cx, cy float64
	if numClients > 0 {
		cx, cy = sumX/numClients, sumY/numClients
	}

	return &ProblemData{
		clients:         append([]Client(nil), clients...),
		dist:            dist,
		dur:             dur,
		numVehicles:     numVehicles,
		weightCapacity:  weightCap,
		volumeCapacity:  volumeCap,
		salvageCapacity: salvageCap,
		routeStoreLimit: routeStoreLimit,
		centroidX:       cx,
		centroidY:       cy,
	}, nil
}

// Client returns the client (or depot, if idx == 0) at the given index.
func (d *ProblemData) Client(idx int) Client { return d.clients[idx] }

// Depot returns the depot client (index 0).
func (d *ProblemData) Depot() Client { return d.clients[0] }

// Centroid returns the mean (x, y) of all non-depot clients.
func (d *ProblemData) Centroid() (float64, float64) { return d.centroidX, d.centroidY }

// Dist returns the distance from first to second.
func (d *ProblemData) Dist(first, second int) Distance { return d.dist.Get(first, second) }

// Duration returns the travel duration from first to second.
func (d *ProblemData) Duration(first, second int) Duration { return d.dur.Get(first, second) }

// DistanceMatrix returns the full distance matrix.
func (d *ProblemData) DistanceMatrix() Matrix[Distance] { return d.dist }

// DurationMatrix returns the full duration matrix.
func (d *ProblemData) DurationMatrix() Matrix[Duration] { return d.dur }

// NumClients returns the number of non-depot clients.
func (d *ProblemData) NumClients() int { return len(d.clients) - 1 }

// NumVehicles returns the fleet size.
func (d *ProblemData) NumVehicles() int { return d.numVehicles }

// WeightCapacity returns the per-vehicle weight capacity.
func (d *ProblemData) WeightCapacity() Load { return d.weightCapacity }

// VolumeCapacity returns the per-vehicle volume capacity.
func (d *ProblemData) VolumeCapacity() Load { return d.volumeCapacity }

// SalvageCapacity returns the per-route salvage capacity.
func (d *ProblemData) SalvageCapacity() Salvage { return d.salvageCapacity }

// RouteStoreLimit returns the per-route distinct-store-tag limit.
func (d *ProblemData) RouteStoreLimit() Store { return d.routeStoreLimit }
