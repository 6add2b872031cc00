package domain

// AssetState is the lifecycle state of an asset. All status mutations go
// through the lifecycle FSM; repositories never write Status directly.
type AssetState string

const (
	StatePlanning         AssetState = "planning"
	StateProcurement      AssetState = "procurement"
	StateReceived         AssetState = "received"
	StateInInventory      AssetState = "in_inventory"
	StateDeployed         AssetState = "deployed"
	StateInUse            AssetState = "in_use"
	StateRentedOut        AssetState = "rented_out"
	StateUnderMaintenance AssetState = "under_maintenance"
	StateUnderRepair      AssetState = "under_repair"
	StateUnderConversion  AssetState = "under_conversion"
	StateRetired          AssetState = "retired"
	StateDisposed         AssetState = "disposed"
	StateLostStolen       AssetState = "lost_stolen"
	StateArchived         AssetState = "archived"
)

// StateInfo carries display metadata for an AssetState.
type StateInfo struct {
	State       AssetState `json:"state"`
	DisplayName string     `json:"display_name"`
	Color       string     `json:"color"`
	IsTerminal  bool       `json:"is_terminal"`
	IsActive    bool       `json:"is_active"`
}

var stateInfos = map[AssetState]StateInfo{
	StatePlanning:         {StatePlanning, "Planning", "gray", false, false},
	StateProcurement:      {StateProcurement, "Procurement", "blue", false, false},
	StateReceived:         {StateReceived, "Received", "cyan", false, false},
	StateInInventory:      {StateInInventory, "In Inventory", "green", false, true},
	StateDeployed:         {StateDeployed, "Deployed", "teal", false, true},
	StateInUse:            {StateInUse, "In Use", "indigo", false, true},
	StateRentedOut:        {StateRentedOut, "Rented Out", "pink", false, true},
	StateUnderMaintenance: {StateUnderMaintenance, "Under Maintenance", "yellow", false, true},
	StateUnderRepair:      {StateUnderRepair, "Under Repair", "orange", false, true},
	StateUnderConversion:  {StateUnderConversion, "Under Conversion", "purple", false, true},
	StateRetired:          {StateRetired, "Retired", "brown", false, false},
	StateDisposed:         {StateDisposed, "Disposed", "black", true, false},
	StateLostStolen:       {StateLostStolen, "Lost / Stolen", "red", false, false},
	StateArchived:         {StateArchived, "Archived", "black", true, false},
}

// Valid reports whether s names a known AssetState.
func (s AssetState) Valid() bool {
	_, ok := stateInfos[s]
	return ok
}

// Info returns the display metadata for the state.
func (s AssetState) Info() StateInfo { return stateInfos[s] }

// IsTerminal reports whether no further transition is allowed.
func (s AssetState) IsTerminal() bool { return stateInfos[s].IsTerminal }

// IsActive reports whether the asset is in operational circulation.
func (s AssetState) IsActive() bool { return stateInfos[s].IsActive }

func (s AssetState) String() string { return string(s) }

// AllStates returns every defined AssetState.
func AllStates() []AssetState {
	return []AssetState{
		StatePlanning, StateProcurement, StateReceived, StateInInventory,
		StateDeployed, StateInUse, StateRentedOut,
		StateUnderMaintenance, StateUnderRepair,
		StateUnderConversion, StateRetired, StateDisposed,
		StateLostStolen, StateArchived,
	}
}
