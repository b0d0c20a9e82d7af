package flight_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowflight "github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/flight"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/plan/lazy"
	"github.com/hugr-lab/planbridge/table"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer serves exec on a loopback listener and returns a connected client.
func startServer(t *testing.T, exec flight.Executor) arrowflight.FlightServiceClient {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	logger := quietLogger()
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(flight.UnaryServerInterceptor(logger)),
		grpc.StreamInterceptor(flight.StreamServerInterceptor(logger)),
	)
	flight.RegisterFlightServer(grpcServer, flight.NewServer(exec, memory.NewGoAllocator(), logger, lis.Addr().String()))
	go grpcServer.Serve(lis)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return arrowflight.NewFlightServiceClient(conn)
}

func newBridge(t *testing.T) *planbridge.Bridge {
	t.Helper()
	b, err := planbridge.New(planbridge.Config{Threads: 1, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func planBytes(t *testing.T, f *lazy.Frame) []byte {
	t.Helper()
	data, err := f.Bytes()
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	return data
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	if err := os.WriteFile(path, []byte("name,age\nann,31\nbob,25\ncid,40\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func readAll(t *testing.T, rdr *arrowflight.Reader) *table.Table {
	t.Helper()
	defer rdr.Release()
	tbl, err := table.FromReader(memory.NewGoAllocator(), rdr)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	t.Cleanup(tbl.Release)
	return tbl
}

func TestGetFlightInfoAndDoGet(t *testing.T) {
	client := startServer(t, newBridge(t))
	ctx := context.Background()

	cmd := planBytes(t, lazy.ScanCSV(writeCSV(t)).
		Filter(lazy.Col("age").Gt(lazy.Lit(30))).
		Select(lazy.Col("name")))

	info, err := client.GetFlightInfo(ctx, &arrowflight.FlightDescriptor{Type: arrowflight.DescriptorCMD, Cmd: cmd})
	if err != nil {
		t.Fatalf("GetFlightInfo failed: %v", err)
	}
	schema, err := arrowflight.DeserializeSchema(info.GetSchema(), memory.NewGoAllocator())
	if err != nil {
		t.Fatalf("DeserializeSchema failed: %v", err)
	}
	if schema.NumFields() != 1 || schema.Field(0).Name != "name" {
		t.Fatalf("schema = %s, want a single name column", schema)
	}
	if len(info.GetEndpoint()) != 1 || len(info.GetEndpoint()[0].GetLocation()) != 1 {
		t.Fatalf("expected one endpoint with a location, got %v", info.GetEndpoint())
	}

	stream, err := client.DoGet(ctx, info.GetEndpoint()[0].GetTicket())
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	rdr, err := arrowflight.NewRecordReader(stream)
	if err != nil {
		t.Fatalf("NewRecordReader failed: %v", err)
	}
	got := readAll(t, rdr)

	if got.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", got.NumRows())
	}
	names := got.Column(0).(*array.String)
	if names.Value(0) != "ann" || names.Value(1) != "cid" {
		t.Errorf("names = [%s %s], want [ann cid]", names.Value(0), names.Value(1))
	}
}

func TestGetSchema(t *testing.T) {
	client := startServer(t, newBridge(t))
	cmd := planBytes(t, lazy.ScanCSV(writeCSV(t)).Select(lazy.Col("age").Mul(lazy.Lit(2)).Alias("double")))

	res, err := client.GetSchema(context.Background(), &arrowflight.FlightDescriptor{Type: arrowflight.DescriptorCMD, Cmd: cmd})
	if err != nil {
		t.Fatalf("GetSchema failed: %v", err)
	}
	schema, err := arrowflight.DeserializeSchema(res.GetSchema(), memory.NewGoAllocator())
	if err != nil {
		t.Fatalf("DeserializeSchema failed: %v", err)
	}
	if schema.NumFields() != 1 || schema.Field(0).Name != "double" {
		t.Errorf("schema = %s, want a single double column", schema)
	}
}

func TestGetFlightInfoErrors(t *testing.T) {
	client := startServer(t, newBridge(t))
	ctx := context.Background()

	tests := []struct {
		name string
		desc *arrowflight.FlightDescriptor
		code codes.Code
	}{
		{"path descriptor", &arrowflight.FlightDescriptor{Type: arrowflight.DescriptorPATH, Path: []string{"x"}}, codes.InvalidArgument},
		{"garbage plan", &arrowflight.FlightDescriptor{Type: arrowflight.DescriptorCMD, Cmd: []byte{0xc1}}, codes.InvalidArgument},
		{"memory scan needs a seed", &arrowflight.FlightDescriptor{Type: arrowflight.DescriptorCMD, Cmd: planBytes(t, lazy.MemoryScan())}, codes.Unimplemented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.GetFlightInfo(ctx, tt.desc)
			if status.Code(err) != tt.code {
				t.Errorf("code = %s, want %s (err: %v)", status.Code(err), tt.code, err)
			}
		})
	}
}

func TestDoGetVersionUnsupported(t *testing.T) {
	client := startServer(t, newBridge(t))

	data, err := plan.Encode(&plan.Plan{PlanVersion: 99, Root: lazy.ScanCSV("x.csv").Root()})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	ticket, err := flight.EncodeTicket(data)
	if err != nil {
		t.Fatalf("EncodeTicket failed: %v", err)
	}

	stream, err := client.DoGet(context.Background(), &arrowflight.Ticket{Ticket: ticket})
	if err != nil {
		t.Fatalf("DoGet failed: %v", err)
	}
	_, err = stream.Recv()
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %s, want FailedPrecondition (err: %v)", status.Code(err), err)
	}
	if !strings.Contains(status.Convert(err).Message(), "[ERR_PLAN_VERSION_UNSUPPORTED] Unsupported plan version: 99") {
		t.Errorf("message = %q", status.Convert(err).Message())
	}
}

func exchangeSeed(t *testing.T) arrow.RecordBatch {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "b", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	bldr := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).AppendValues([]int64{-1, 2, 3}, nil)
	bldr.Field(1).(*array.StringBuilder).AppendValues([]string{"x", "y", "z"}, nil)
	rec := bldr.NewRecordBatch()
	t.Cleanup(rec.Release)
	return rec
}

func TestDoExchange(t *testing.T) {
	client := startServer(t, newBridge(t))
	rec := exchangeSeed(t)

	stream, err := client.DoExchange(context.Background())
	if err != nil {
		t.Fatalf("DoExchange failed: %v", err)
	}

	writer := arrowflight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	writer.SetFlightDescriptor(&arrowflight.FlightDescriptor{
		Type: arrowflight.DescriptorCMD,
		Cmd: planBytes(t, lazy.MemoryScan().
			Filter(lazy.Col("a").Gt(lazy.Lit(0))).
			Select(lazy.Col("b").StrToUppercase())),
	})
	// Two batches exercise seed concatenation.
	for i := 0; i < 2; i++ {
		if err := writer.Write(rec); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend failed: %v", err)
	}

	rdr, err := arrowflight.NewRecordReader(stream)
	if err != nil {
		t.Fatalf("NewRecordReader failed: %v", err)
	}
	got := readAll(t, rdr)

	if got.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", got.NumRows())
	}
	col := got.Column(0).(*array.String)
	for i, want := range []string{"Y", "Z", "Y", "Z"} {
		if col.Value(i) != want {
			t.Errorf("b[%d] = %s, want %s", i, col.Value(i), want)
		}
	}
}

func TestDoExchangeRequiresDescriptor(t *testing.T) {
	client := startServer(t, newBridge(t))
	rec := exchangeSeed(t)

	stream, err := client.DoExchange(context.Background())
	if err != nil {
		t.Fatalf("DoExchange failed: %v", err)
	}
	// The server may reject the stream before the batch lands, so write
	// errors are not checked here.
	writer := arrowflight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()))
	_ = writer.Write(rec)
	_ = writer.Close()
	_ = stream.CloseSend()

	_, err = stream.Recv()
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %s, want InvalidArgument (err: %v)", status.Code(err), err)
	}
}

func doAction(t *testing.T, client arrowflight.FlightServiceClient, ctx context.Context, action *arrowflight.Action) ([]byte, error) {
	t.Helper()
	stream, err := client.DoAction(ctx, action)
	if err != nil {
		return nil, err
	}
	res, err := stream.Recv()
	if err != nil {
		return nil, err
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("expected EOF after result, got %v", err)
	}
	return res.GetBody(), nil
}

func TestDoAction(t *testing.T) {
	b := newBridge(t)
	client := startServer(t, b)
	ctx := metadata.AppendToOutgoingContext(context.Background(), flight.HeaderTraceID, "trace-1")

	body, err := doAction(t, client, ctx, &arrowflight.Action{Type: flight.ActionCapabilities})
	if err != nil {
		t.Fatalf("capabilities failed: %v", err)
	}
	var manifest planbridge.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if manifest.ABIVersion != planbridge.CurrentABIVersion {
		t.Errorf("abi_version = %d, want %d", manifest.ABIVersion, planbridge.CurrentABIVersion)
	}

	body, err = doAction(t, client, ctx, &arrowflight.Action{Type: flight.ActionABIVersion})
	if err != nil {
		t.Fatalf("abi_version failed: %v", err)
	}
	if string(body) != strconv.Itoa(int(planbridge.CurrentABIVersion)) {
		t.Errorf("abi_version = %q", body)
	}

	body, err = doAction(t, client, ctx, &arrowflight.Action{Type: flight.ActionEngineVersion})
	if err != nil {
		t.Fatalf("engine_version failed: %v", err)
	}
	if !strings.HasPrefix(string(body), "v") {
		t.Errorf("engine_version = %q, want a v-prefixed version", body)
	}

	body, err = doAction(t, client, ctx, &arrowflight.Action{
		Type: flight.ActionFlightInfo,
		Body: planBytes(t, lazy.ScanCSV(writeCSV(t))),
	})
	if err != nil {
		t.Fatalf("flight_info failed: %v", err)
	}
	var info arrowflight.FlightInfo
	if err := proto.Unmarshal(body, &info); err != nil {
		t.Fatalf("flight_info is not a FlightInfo: %v", err)
	}
	if len(info.GetEndpoint()) != 1 {
		t.Errorf("endpoints = %d, want 1", len(info.GetEndpoint()))
	}

	_, err = doAction(t, client, ctx, &arrowflight.Action{Type: "drop_everything"})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("unknown action: code = %s, want Unimplemented", status.Code(err))
	}
}

func TestListActions(t *testing.T) {
	client := startServer(t, newBridge(t))

	stream, err := client.ListActions(context.Background(), &arrowflight.Empty{})
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	var types []string
	for {
		at, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		types = append(types, at.GetType())
	}
	want := []string{flight.ActionCapabilities, flight.ActionEngineVersion, flight.ActionABIVersion, flight.ActionFlightInfo}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("actions = %v, want %v", types, want)
	}
}

// panickyExecutor fails every call by panicking.
type panickyExecutor struct{ flight.Executor }

func (panickyExecutor) Capabilities() (string, error) { panic("manifest exploded") }

func TestInterceptorRecoversPanics(t *testing.T) {
	client := startServer(t, panickyExecutor{})

	_, err := doAction(t, client, context.Background(), &arrowflight.Action{Type: flight.ActionCapabilities})
	if status.Code(err) != codes.Unknown {
		t.Fatalf("code = %s, want Unknown (err: %v)", status.Code(err), err)
	}
	if msg := status.Convert(err).Message(); msg != "[ERR_UNKNOWN] Panic: manifest exploded" {
		t.Errorf("message = %q", msg)
	}
}

func TestMetadataEnrichment(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		flight.HeaderTraceID, "t-42",
		flight.HeaderSessionID, "s-7",
	))
	ctx = flight.EnrichContextMetadata(ctx)
	if got := flight.TraceIDFromContext(ctx); got != "t-42" {
		t.Errorf("trace id = %q, want t-42", got)
	}
	if got := flight.SessionIDFromContext(ctx); got != "s-7" {
		t.Errorf("session id = %q, want s-7", got)
	}
	if flight.EnrichContextMetadata(ctx) != ctx {
		t.Error("enriching twice should return the same context")
	}
	if flight.TraceIDFromContext(context.Background()) != "" {
		t.Error("plain context should have no trace id")
	}

	generated := flight.TraceIDFromContext(flight.EnrichContextMetadata(context.Background()))
	if _, err := uuid.Parse(generated); err != nil {
		t.Errorf("missing trace header should yield a UUID, got %q", generated)
	}
}
