package broadcast

import "strconv"

// Room is an ephemeral pub/sub grouping key. The constructors below are
// the only way room keys are built; a typo'd ad-hoc string would route
// events nowhere.
type Room string

// RoomNotification is the fixed global notification room.
const RoomNotification Room = "notification"

// TicketRoom keys a single ticket's room by its decimal id.
func TicketRoom(id int64) Room {
	return Room(strconv.FormatInt(id, 10))
}

// StatusRoom keys the room observing all tickets in one status.
func StatusRoom(status string) Room {
	return Room(status)
}
