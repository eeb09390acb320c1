package grpc

import (
	"context"
	"encoding/json"
	"iter"
	"log"
	"math"
	"slices"
	"sort"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dictdb/dictdb/internal/engine"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// Engine is the record engine as seen by the gRPC API.
type Engine interface {
	Write(ctx context.Context, mode engine.Mode, recs iter.Seq[types.Record], opts ...engine.Option) (engine.Result, error)
	Select(ctx context.Context, table string, q engine.Query) ([]types.Record, error)
	DDLFor(rec types.Record, opts ...engine.Option) (string, error)
}

// RecordsService implements RecordsServer on the engine.
type RecordsService struct {
	engine Engine
}

// NewRecordsService creates the service.
func NewRecordsService(e Engine) *RecordsService {
	return &RecordsService{engine: e}
}

// Write applies {table?, mode?, records: [...], ignore?: [codes]} and
// returns {table, records, rows, ignored}.
func (s *RecordsService) Write(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	mode, err := engine.ParseMode(fields["mode"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	list := fields["records"].GetListValue().GetValues()
	if len(list) == 0 {
		return nil, status.Error(codes.InvalidArgument, "records must not be empty")
	}
	recs := make([]types.Record, 0, len(list))
	for i, v := range list {
		st := v.GetStructValue()
		if st == nil {
			return nil, status.Errorf(codes.InvalidArgument, "records[%d] is not an object", i)
		}
		recs = append(recs, RecordFromStruct(st))
	}

	var opts []engine.Option
	if table := fields["table"].GetStringValue(); table != "" {
		opts = append(opts, engine.WithTable(table))
	}
	for _, v := range fields["ignore"].GetListValue().GetValues() {
		sentinel, ok := dberrors.FromCode(v.GetStringValue())
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown error code %q", v.GetStringValue())
		}
		opts = append(opts, engine.WithIgnore(sentinel))
	}

	res, err := s.engine.Write(ctx, mode, slices.Values(recs), opts...)
	if err != nil {
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]any{
		"table":   res.Table,
		"records": res.Records,
		"rows":    res.Rows,
		"ignored": res.Ignored,
	})
}

// Select runs {table, columns?, where?, first?} and returns {rows: [...]}.
func (s *RecordsService) Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	table := fields["table"].GetStringValue()
	if table == "" {
		return nil, status.Error(codes.InvalidArgument, "table is required")
	}

	q := engine.Query{First: fields["first"].GetBoolValue()}
	for _, v := range fields["columns"].GetListValue().GetValues() {
		q.Columns = append(q.Columns, v.GetStringValue())
	}
	if where := fields["where"].GetStructValue(); where != nil {
		q.Where = RecordFromStruct(where)
	}

	rows, err := s.engine.Select(ctx, table, q)
	if err != nil {
		return nil, statusError(err)
	}
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		m, err := plainMap(row)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode row: %v", err)
		}
		values = append(values, m)
	}
	return structpb.NewStruct(map[string]any{"rows": values})
}

// DDL returns {ddl} for {record, table?}. Nothing is executed.
func (s *RecordsService) DDL(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	st := fields["record"].GetStructValue()
	if st == nil {
		return nil, status.Error(codes.InvalidArgument, "record is required")
	}
	var opts []engine.Option
	if table := fields["table"].GetStringValue(); table != "" {
		opts = append(opts, engine.WithTable(table))
	}

	ddl, err := s.engine.DDLFor(RecordFromStruct(st), opts...)
	if err != nil {
		return nil, statusError(err)
	}
	return structpb.NewStruct(map[string]any{"ddl": ddl})
}

// RecordFromStruct converts a Struct to a record. Struct fields carry no
// order, so keys are taken in sorted order. Integral numbers become int64.
func RecordFromStruct(st *structpb.Struct) types.Record {
	keys := make([]string, 0, len(st.GetFields()))
	for k := range st.GetFields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(types.Record, 0, len(keys))
	for _, k := range keys {
		rec = append(rec, types.Field{Key: k, Value: fromValue(st.Fields[k])})
	}
	return rec
}

func fromValue(v *structpb.Value) any {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_ListValue:
		out := make([]any, len(k.ListValue.GetValues()))
		for i, e := range k.ListValue.GetValues() {
			out[i] = fromValue(e)
		}
		return out
	case *structpb.Value_StructValue:
		out := make(map[string]any, len(k.StructValue.GetFields()))
		for name, e := range k.StructValue.GetFields() {
			out[name] = fromValue(e)
		}
		return out
	default:
		return nil
	}
}

// plainMap reduces a record to JSON-compatible values, which is what
// structpb accepts.
func plainMap(rec types.Record) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// statusError maps an engine error to a gRPC status.
func statusError(err error) error {
	var c codes.Code
	switch dberrors.GetCode(err) {
	case dberrors.CodeInvalidKey, dberrors.CodeMalformedDescriptor, dberrors.CodeUnsupportedType:
		c = codes.InvalidArgument
	case dberrors.CodeTableNotFound:
		c = codes.NotFound
	case dberrors.CodeUniquenessViolation:
		c = codes.AlreadyExists
	case dberrors.CodeUnsupportedMigration, dberrors.CodeSchemaMismatch:
		c = codes.FailedPrecondition
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

// RequestIDInterceptor attaches an x-request-id to every call, reusing the
// caller's when present, and logs failed calls.
func RequestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := extractRequestID(ctx)
	if err := grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID)); err != nil {
		log.Printf("[WARN] grpc: set header: %v", err)
	}
	resp, err := handler(ctx, req)
	if err != nil {
		log.Printf("grpc: %s request_id=%s failed: %v", info.FullMethod, requestID, err)
	}
	return resp, err
}

// extractRequestID extracts or generates a request ID from the gRPC context.
func extractRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get("x-request-id"); len(ids) > 0 {
			return ids[0]
		}
	}
	return uuid.New().String()
}

var _ RecordsServer = (*RecordsService)(nil)
