package wire

import "time"

// ClientMessage is a message sent from a client to the server.
type ClientMessage interface {
	clientMessage()
}

// ServerMessage is a message sent from the server to a client.
type ServerMessage interface {
	serverMessage()
}

// Chunk is an in-band fragment of a file transfer, tagged with the
// per-connection transfer id it belongs to. Chunks travel in both
// directions wrapped in the Common envelope.
type Chunk struct {
	Data []byte
	ID   int64
}

func (*Chunk) clientMessage() {}
func (*Chunk) serverMessage() {}

// Text is a chat line from a client.
type Text struct {
	Text string
}

// Leave announces that the client is disconnecting on purpose.
type Leave struct{}

// Rename asks the server to change the client's display name.
type Rename struct {
	NewName string
}

// RequestFileUpload asks the server to receive a file of Size bytes and
// store it under Name. The id is chosen by the client.
type RequestFileUpload struct {
	Name string
	Size int64
	ID   int64
}

// RequestFileDownload asks the server to send the stored file Name.
type RequestFileDownload struct {
	Name string
}

// AgreeFileDownload confirms that the client is ready to receive the
// transfer the server offered under this id.
type AgreeFileDownload struct {
	ID int64
}

// DeclineFileDownload cancels a download the server offered under this id.
type DeclineFileDownload struct {
	ID int64
}

func (*Text) clientMessage()                {}
func (*Leave) clientMessage()               {}
func (*Rename) clientMessage()              {}
func (*RequestFileUpload) clientMessage()   {}
func (*RequestFileDownload) clientMessage() {}
func (*AgreeFileDownload) clientMessage()   {}
func (*DeclineFileDownload) clientMessage() {}

// ServerText is a chat line broadcast to the room, attributed to the
// sender's current display name.
type ServerText struct {
	Text string
	Name string
	Time time.Time
}

// NewUser announces a client joining the room.
type NewUser struct {
	Name string
	Time time.Time
}

// UserLeaves announces a client leaving on purpose.
type UserLeaves struct {
	Name string
	Time time.Time
}

// Interrupt announces a client dropped by the server: a dead connection or
// a protocol violation.
type Interrupt struct {
	Name string
	Time time.Time
}

// Support is a service notice addressed to a single client.
type Support struct {
	Text string
}

// UserRenamed announces an accepted rename.
type UserRenamed struct {
	OldName string
	NewName string
}

// NewFile announces that a finished upload is now available in the store.
type NewFile struct {
	Name string
}

// AgreeFileUpload accepts an upload request; the client may start sending
// chunks under this id.
type AgreeFileUpload struct {
	ID int64
}

// DeclineFileUpload rejects an upload request.
type DeclineFileUpload struct {
	ID     int64
	Reason string
}

// ServerAgreeFileDownload offers a requested file for download. The id is
// chosen by the server; the transfer starts once the client agrees.
type ServerAgreeFileDownload struct {
	Name string
	Size int64
	ID   int64
}

// ServerDeclineFileDownload rejects a download request.
type ServerDeclineFileDownload struct {
	Name   string
	Reason string
}

func (*ServerText) serverMessage()                {}
func (*NewUser) serverMessage()                   {}
func (*UserLeaves) serverMessage()                {}
func (*Interrupt) serverMessage()                 {}
func (*Support) serverMessage()                   {}
func (*UserRenamed) serverMessage()               {}
func (*NewFile) serverMessage()                   {}
func (*AgreeFileUpload) serverMessage()           {}
func (*DeclineFileUpload) serverMessage()         {}
func (*ServerAgreeFileDownload) serverMessage()   {}
func (*ServerDeclineFileDownload) serverMessage() {}
