package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const storedList = `[{"id":"1","name":"Ops","email":"ops@example.com","active":true},` +
	`{"id":"2","name":"Dev","email":" dev@example.com ","active":true},` +
	`{"id":"3","name":"Old","email":"old@example.com","active":false},` +
	`{"id":"4","name":"Blank","email":"   ","active":true},` +
	`{"id":"5","name":"Ops again","email":"ops@example.com","active":true},` +
	`{"id":"6","name":"Ops upper","email":"OPS@example.com","active":true}]`

func doubleEncode(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
	}{
		{name: "direct list", raw: storedList, wantCount: 6},
		{name: "double encoded", raw: doubleEncode(t, storedList), wantCount: 6},
		{name: "empty array", raw: `[]`, wantCount: 0},
		{name: "null", raw: `null`, wantCount: 0},
		{name: "garbage", raw: `not json`, wantCount: 0},
		{name: "string holding garbage", raw: `"not a list"`, wantCount: 0},
		{name: "object instead of list", raw: `{"email":"a@b.c"}`, wantCount: 0},
		{name: "empty value", raw: ``, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeList([]byte(tt.raw))
			if got == nil {
				t.Fatal("DecodeList() returned nil, want empty slice")
			}
			if len(got) != tt.wantCount {
				t.Errorf("DecodeList() returned %d entries, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestDecodeList_SingleAndDoubleEncodedAgree(t *testing.T) {
	direct := Effective(DecodeList([]byte(storedList)))
	double := Effective(DecodeList([]byte(doubleEncode(t, storedList))))
	if !reflect.DeepEqual(direct, double) {
		t.Errorf("direct = %v, double = %v", direct, double)
	}
}

func TestEffective(t *testing.T) {
	got := Effective(DecodeList([]byte(storedList)))
	want := []string{"ops@example.com", "dev@example.com", "OPS@example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Effective() = %v, want %v", got, want)
	}
}

func TestEffective_Idempotent(t *testing.T) {
	first := Effective(DecodeList([]byte(storedList)))

	again := make([]Subscriber, len(first))
	for i, email := range first {
		again[i] = Subscriber{Email: email, Active: true}
	}
	second := Effective(again)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Effective() not idempotent: %v then %v", first, second)
	}
}

func TestEffective_Empty(t *testing.T) {
	if got := Effective(nil); len(got) != 0 {
		t.Errorf("Effective(nil) = %v, want empty", got)
	}
}

func TestStore_Resolve(t *testing.T) {
	redisDown := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

	tests := []struct {
		name    string
		stored  *string
		getErr  error
		want    []string
		wantErr bool
	}{
		{name: "missing key", want: []string{}},
		{name: "direct list", stored: strPtr(storedList), want: []string{"ops@example.com", "dev@example.com", "OPS@example.com"}},
		{name: "double encoded", stored: strPtr(doubleEncode(t, storedList)), want: []string{"ops@example.com", "dev@example.com", "OPS@example.com"}},
		{name: "unparseable", stored: strPtr("{{"), want: []string{}},
		{name: "redis failure", getErr: redisDown, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeRedis()
			fake.getErr = tt.getErr
			if tt.stored != nil {
				fake.values[Key] = *tt.stored
			}

			got, err := NewStore(fake).Resolve(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, redisDown) {
					t.Errorf("Resolve() error should wrap the Redis error, got %v", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_ReadsFreshEveryCall(t *testing.T) {
	fake := newFakeRedis()
	store := NewStore(fake)

	fake.values[Key] = `[{"email":"a@example.com","active":true}]`
	first, _ := store.Resolve(context.Background())

	fake.values[Key] = `[{"email":"b@example.com","active":true}]`
	second, _ := store.Resolve(context.Background())

	if first[0] != "a@example.com" || second[0] != "b@example.com" {
		t.Errorf("Resolve() served stale data: %v then %v", first, second)
	}
}

func TestStore_Save(t *testing.T) {
	tests := []struct {
		name    string
		list    []Subscriber
		setErr  error
		wantErr error
	}{
		{name: "valid", list: []Subscriber{{Name: "Ops", Email: "ops@example.com", Active: true}}},
		{name: "empty list", list: nil},
		{name: "missing at", list: []Subscriber{{Email: "ops.example.com", Active: true}}, wantErr: ErrInvalidSubscriber},
		{name: "blank email", list: []Subscriber{{Email: " ", Active: true}}, wantErr: ErrInvalidSubscriber},
		{name: "redis failure", list: []Subscriber{{Email: "ops@example.com"}}, setErr: errors.New("READONLY")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeRedis()
			fake.setErr = tt.setErr
			store := NewStore(fake)

			err := store.Save(context.Background(), tt.list)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Save() error = %v, want %v", err, tt.wantErr)
				}
				if len(fake.setKeys) != 0 {
					t.Error("Save() wrote an invalid list")
				}
				return
			}
			if tt.setErr != nil {
				if err == nil {
					t.Fatal("Save() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			// Written value must decode directly, without the string pass.
			var direct []Subscriber
			if err := json.Unmarshal([]byte(fake.values[Key]), &direct); err != nil {
				t.Fatalf("stored value is not a JSON array: %q", fake.values[Key])
			}
			if len(direct) != len(tt.list) {
				t.Errorf("stored %d entries, want %d", len(direct), len(tt.list))
			}
		})
	}
}

func strPtr(s string) *string { return &s }
