// Package bus provides the multiplexed command bus protocol.
package bus

// Every frame on the bus is a single command discriminant byte followed
// by a payload whose size is fixed by the command. There is no length
// prefix, checksum or delimiter: transports deliver one logical message
// per read and the receiver validates the payload size against the
// command before executing anything.
//
// Endpoints are addressed by ChannelSet, a bitmask of logical channels.
// A ChannelSet is used as a destination (fan-out to every channel set),
// while a ChannelID tags the single channel a frame was received from.
//
// Producer: peer controllers, companion computer, remote clients
// Consumer: core controller
