package candrive

const CanSffMask uint32 = 0x000007FF

// COB-ID bases of the CANopen services used by this package (CiA 301)
const (
	SDORequestServiceId  uint32 = 0x600 // SDO client --> server
	SDOResponseServiceId uint32 = 0x580 // SDO server --> client
	HeartbeatServiceId   uint32 = 0x700
)

// A CAN frame, standard frame format only
type Frame struct {
	ID    uint32
	Flags uint8
	DLC   uint8
	Data  [8]byte
}

func NewFrame(id uint32, flags uint8, dlc uint8) Frame {
	return Frame{ID: id & CanSffMask, Flags: flags, DLC: dlc}
}

// SDORequestId returns the COB-ID carrying SDO requests for a node
func SDORequestId(nodeId uint8) uint32 {
	return SDORequestServiceId + uint32(nodeId)
}

// SDOResponseId returns the COB-ID carrying SDO responses from a node.
// This is always the request COB-ID minus 0x80.
func SDOResponseId(nodeId uint8) uint32 {
	return SDOResponseServiceId + uint32(nodeId)
}

// HeartbeatId returns the COB-ID of heartbeats produced by a node
func HeartbeatId(nodeId uint8) uint32 {
	return HeartbeatServiceId + uint32(nodeId)
}
