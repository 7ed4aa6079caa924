package qualifier

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Qualifier
		wantErr bool
	}{
		{
			name:  "bare connection",
			input: "plc1",
			want:  Qualifier{Var: "plc1"},
		},
		{
			name:  "reader",
			input: "temperature::plc1",
			want:  Qualifier{Var: "temperature", Connection: "plc1"},
		},
		{
			name:  "writer",
			input: "setpoint::plc2<-temperature::plc1",
			want: Qualifier{
				Var: "setpoint", Connection: "plc2",
				HasSource: true, SourceVar: "temperature", SourceConn: "plc1",
			},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "dangling arrow no dcolon", input: "a<-b", wantErr: true},
		{name: "too many separators", input: "a::b::c", wantErr: true},
		{name: "empty var", input: "::conn", wantErr: true},
		{name: "empty connection", input: "var::", wantErr: true},
		{name: "malformed source", input: "a::b<-c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) = %+v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{"plc1", "temperature::plc1", "setpoint::plc2<-temperature::plc1"}
	for _, in := range inputs {
		q, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := q.String(); got != in {
			t.Errorf("round trip: Parse(%q).String() = %q", in, got)
		}
	}
}

func TestKindPredicates(t *testing.T) {
	conn, _ := Parse("plc1")
	if !conn.IsConnection() || conn.IsReader() || conn.IsWriter() {
		t.Errorf("connection qualifier classified wrong: %+v", conn)
	}
	reader, _ := Parse("x::plc1")
	if reader.IsConnection() || !reader.IsReader() || reader.IsWriter() {
		t.Errorf("reader qualifier classified wrong: %+v", reader)
	}
	writer, _ := Parse("x::plc1<-y::plc2")
	if writer.IsConnection() || writer.IsReader() || !writer.IsWriter() {
		t.Errorf("writer qualifier classified wrong: %+v", writer)
	}
}
