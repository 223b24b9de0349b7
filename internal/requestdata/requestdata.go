package requestdata

import (
  "context"
  "github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData is the per-request identity attached by the auth middleware.
type RequestData struct {
  TokenString string
  UserID      uuid.UUID
}

// UserID is a convenience accessor; uuid.Nil when the context carries no
// authenticated identity.
func UserID(ctx context.Context) uuid.UUID {
  rd := GetRequestData(ctx)
  if rd == nil {
    return uuid.Nil
  }
  return rd.UserID
}
