package wire

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Messages are encoded as single-element documents: the element key names
// the variant, the element value holds its fields. An empty variant still
// carries an empty subdocument so every frame has the same outer shape.

func marshalVariant(variant string, fields bson.D) ([]byte, error) {
	return bson.Marshal(bson.D{{Key: variant, Value: fields}})
}

func chunkFields(c *Chunk) bson.D {
	return bson.D{{Key: "Chunk", Value: bson.D{
		{Key: "data", Value: primitive.Binary{Data: c.Data}},
		{Key: "id", Value: c.ID},
	}}}
}

// EncodeClientMessage serializes a client message into one framed document.
func EncodeClientMessage(m ClientMessage) ([]byte, error) {
	switch v := m.(type) {
	case *Text:
		return marshalVariant("Text", bson.D{{Key: "text", Value: v.Text}})
	case *Leave:
		return marshalVariant("Leave", bson.D{})
	case *Rename:
		return marshalVariant("Rename", bson.D{{Key: "new_name", Value: v.NewName}})
	case *RequestFileUpload:
		return marshalVariant("RequestFileUpload", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "size", Value: v.Size},
			{Key: "id", Value: v.ID},
		})
	case *RequestFileDownload:
		return marshalVariant("RequestFileDownload", bson.D{{Key: "name", Value: v.Name}})
	case *AgreeFileDownload:
		return marshalVariant("AgreeFileDownload", bson.D{{Key: "id", Value: v.ID}})
	case *DeclineFileDownload:
		return marshalVariant("DeclineFileDownload", bson.D{{Key: "id", Value: v.ID}})
	case *Chunk:
		return marshalVariant("Common", bson.D{{Key: "common", Value: chunkFields(v)}})
	default:
		return nil, fmt.Errorf("%w: unknown client message %T", ErrMalformedMessage, m)
	}
}

// EncodeServerMessage serializes a server message into one framed document.
func EncodeServerMessage(m ServerMessage) ([]byte, error) {
	switch v := m.(type) {
	case *ServerText:
		return marshalVariant("Text", bson.D{
			{Key: "text", Value: v.Text},
			{Key: "name", Value: v.Name},
			{Key: "time", Value: v.Time},
		})
	case *NewUser:
		return marshalVariant("NewUser", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "time", Value: v.Time},
		})
	case *UserLeaves:
		return marshalVariant("UserLeaves", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "time", Value: v.Time},
		})
	case *Interrupt:
		return marshalVariant("Interrupt", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "time", Value: v.Time},
		})
	case *Support:
		return marshalVariant("Support", bson.D{{Key: "text", Value: v.Text}})
	case *UserRenamed:
		return marshalVariant("UserRenamed", bson.D{
			{Key: "old_name", Value: v.OldName},
			{Key: "new_name", Value: v.NewName},
		})
	case *NewFile:
		return marshalVariant("NewFile", bson.D{{Key: "name", Value: v.Name}})
	case *AgreeFileUpload:
		return marshalVariant("AgreeFileUpload", bson.D{{Key: "id", Value: v.ID}})
	case *DeclineFileUpload:
		return marshalVariant("DeclineFileUpload", bson.D{
			{Key: "id", Value: v.ID},
			{Key: "reason", Value: v.Reason},
		})
	case *ServerAgreeFileDownload:
		return marshalVariant("AgreeFileDownload", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "size", Value: v.Size},
			{Key: "id", Value: v.ID},
		})
	case *ServerDeclineFileDownload:
		return marshalVariant("DeclineFileDownload", bson.D{
			{Key: "name", Value: v.Name},
			{Key: "reason", Value: v.Reason},
		})
	case *Chunk:
		return marshalVariant("Common", bson.D{{Key: "common", Value: chunkFields(v)}})
	default:
		return nil, fmt.Errorf("%w: unknown server message %T", ErrMalformedMessage, m)
	}
}

// splitVariant returns the single element of a framed document.
func splitVariant(doc bson.Raw) (string, bson.RawValue, error) {
	elems, err := doc.Elements()
	if err != nil {
		return "", bson.RawValue{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(elems) != 1 {
		return "", bson.RawValue{}, fmt.Errorf("%w: expected one variant, got %d elements", ErrMalformedMessage, len(elems))
	}
	return elems[0].Key(), elems[0].Value(), nil
}

func unmarshalFields(body bson.RawValue, out interface{}) error {
	if err := body.Unmarshal(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// chunkEnvelope mirrors {"Common": {"common": {"Chunk": {...}}}}.
type chunkEnvelope struct {
	Outer struct {
		Inner struct {
			Chunk struct {
				Data primitive.Binary `bson:"data"`
				ID   int64            `bson:"id"`
			} `bson:"Chunk"`
		} `bson:"common"`
	} `bson:"Common"`
}

func decodeChunk(doc bson.Raw) (*Chunk, error) {
	var env chunkEnvelope
	if err := bson.Unmarshal(doc, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	chunk := env.Outer.Inner.Chunk
	return &Chunk{Data: chunk.Data.Data, ID: chunk.ID}, nil
}

// DecodeClientMessage parses one framed document as a client message.
func DecodeClientMessage(doc bson.Raw) (ClientMessage, error) {
	variant, body, err := splitVariant(doc)
	if err != nil {
		return nil, err
	}

	switch variant {
	case "Text":
		var f struct {
			Text string `bson:"text"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &Text{Text: f.Text}, nil
	case "Leave":
		return &Leave{}, nil
	case "Rename":
		var f struct {
			NewName string `bson:"new_name"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &Rename{NewName: f.NewName}, nil
	case "RequestFileUpload":
		var f struct {
			Name string `bson:"name"`
			Size int64  `bson:"size"`
			ID   int64  `bson:"id"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &RequestFileUpload{Name: f.Name, Size: f.Size, ID: f.ID}, nil
	case "RequestFileDownload":
		var f struct {
			Name string `bson:"name"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &RequestFileDownload{Name: f.Name}, nil
	case "AgreeFileDownload":
		var f struct {
			ID int64 `bson:"id"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &AgreeFileDownload{ID: f.ID}, nil
	case "DeclineFileDownload":
		var f struct {
			ID int64 `bson:"id"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &DeclineFileDownload{ID: f.ID}, nil
	case "Common":
		return decodeChunk(doc)
	default:
		return nil, fmt.Errorf("%w: unknown client variant %q", ErrMalformedMessage, variant)
	}
}

// DecodeServerMessage parses one framed document as a server message.
func DecodeServerMessage(doc bson.Raw) (ServerMessage, error) {
	variant, body, err := splitVariant(doc)
	if err != nil {
		return nil, err
	}

	switch variant {
	case "Text":
		var f struct {
			Text string    `bson:"text"`
			Name string    `bson:"name"`
			Time time.Time `bson:"time"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &ServerText{Text: f.Text, Name: f.Name, Time: f.Time}, nil
	case "NewUser":
		var f nameTimeFields
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &NewUser{Name: f.Name, Time: f.Time}, nil
	case "UserLeaves":
		var f nameTimeFields
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &UserLeaves{Name: f.Name, Time: f.Time}, nil
	case "Interrupt":
		var f nameTimeFields
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &Interrupt{Name: f.Name, Time: f.Time}, nil
	case "Support":
		var f struct {
			Text string `bson:"text"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &Support{Text: f.Text}, nil
	case "UserRenamed":
		var f struct {
			OldName string `bson:"old_name"`
			NewName string `bson:"new_name"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &UserRenamed{OldName: f.OldName, NewName: f.NewName}, nil
	case "NewFile":
		var f struct {
			Name string `bson:"name"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &NewFile{Name: f.Name}, nil
	case "AgreeFileUpload":
		var f struct {
			ID int64 `bson:"id"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &AgreeFileUpload{ID: f.ID}, nil
	case "DeclineFileUpload":
		var f struct {
			ID     int64  `bson:"id"`
			Reason string `bson:"reason"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &DeclineFileUpload{ID: f.ID, Reason: f.Reason}, nil
	case "AgreeFileDownload":
		var f struct {
			Name string `bson:"name"`
			Size int64  `bson:"size"`
			ID   int64  `bson:"id"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &ServerAgreeFileDownload{Name: f.Name, Size: f.Size, ID: f.ID}, nil
	case "DeclineFileDownload":
		var f struct {
			Name   string `bson:"name"`
			Reason string `bson:"reason"`
		}
		if err := unmarshalFields(body, &f); err != nil {
			return nil, err
		}
		return &ServerDeclineFileDownload{Name: f.Name, Reason: f.Reason}, nil
	case "Common":
		return decodeChunk(doc)
	default:
		return nil, fmt.Errorf("%w: unknown server variant %q", ErrMalformedMessage, variant)
	}
}

type nameTimeFields struct {
	Name string    `bson:"name"`
	Time time.Time `bson:"time"`
}
