package serializer

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResponseToBytesBodyIntact(t *testing.T) {
	response := "HTTP/1.1 200 OK\r\nServer: Test\r\n\r\nThis is the body"

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(response)), nil)
	if err != nil {
		panic(err)
	}

	_, err = responseToBytes(res)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if fmt.Sprintf("%s", body) != "This is the body" {
		t.Fatalf("Body: %s", body)
	}
}

func TestTimedResponseSerialization(t *testing.T) {
	res := http.Response{
		StatusCode: 201,
		Header:     map[string][]string{},
	}
	res.Header.Add("Test", "-ing")
	// create times now and now + 1s
	reqTime := time.Now()
	resTime := reqTime.Add(time.Second)
	bts, err := StoredResponseToBytes(TimedResponse{
		Response:     &res,
		ResponseTime: resTime,
		RequestTime:  reqTime,
	})
	if err != nil {
		t.Fatalf("Error creating bytes: %+v", err)
	}
	// deserialize
	res2, err := BytesToStoredResponse(bts)
	if err != nil {
		t.Fatalf("Error creating response: %+v", err)
	}
	// check header, status, times
	if res2.Response.Header.Get("Test") != "-ing" {
		t.Fatalf("Test header wrong %+v", res2.Response.Header)
	}
	if res2.Response.StatusCode != 201 {
		t.Fatalf("Status code is %d", res2.Response.StatusCode)
	}
	if res2.Response.Header.Get("Worker-Response-Time") != "" || res2.Response.Header.Get("Worker-Request-Time") != "" {
		t.Fatalf("Timing headers not stripped %+v", res2.Response.Header)
	}
	if res2.RequestTime.Unix() != reqTime.Unix() || res2.ResponseTime.Unix() != resTime.Unix() {
		t.Fatalf("Times are %v and %v", res2.RequestTime, res2.ResponseTime)
	}
}

// every deserialization must produce a fresh, readable body, since a
// response body can only be read once
func TestRepeatedDeserializationYieldsFreshBodies(t *testing.T) {
	body := "hello again"
	res := http.Response{
		StatusCode:    200,
		Header:        map[string][]string{},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
	bts, err := StoredResponseToBytes(TimedResponse{
		Response:     &res,
		RequestTime:  time.Now(),
		ResponseTime: time.Now(),
	})
	if err != nil {
		t.Fatalf("Error creating bytes: %+v", err)
	}

	for i := 0; i < 2; i++ {
		sRes, err := BytesToStoredResponse(bts)
		if err != nil {
			t.Fatalf("Error creating response: %+v", err)
		}
		got, err := io.ReadAll(sRes.Response.Body)
		sRes.Response.Body.Close()
		if err != nil {
			t.Fatalf("Error reading body: %+v", err)
		}
		if string(got) != body {
			t.Fatalf("Body on read %d is %s", i, got)
		}
	}
}
