package ginserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/adapters/http/ginserver"
	"github.com/vshulcz/rtcobserver/internal/adapters/repository/memory"
	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/services/samples"
)

func newExampleRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := samples.New(memory.New(0), nil)
	return ginserver.NewRouter(ginserver.NewHandler(svc), zap.NewNop())
}

func ExampleNewRouter_ingest() {
	router := newExampleRouter()

	body := bytes.NewBufferString(`[{"clientId":"alice","callId":"c1","sampleSeq":1,"timestamp":1700000000000}]`)
	req := httptest.NewRequest(http.MethodPost, "/samples", body)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	fmt.Println(resp.Code, resp.Body.String())

	// Output:
	// 200 {"ingested":1}
}

func ExampleNewRouter_query() {
	router := newExampleRouter()

	body := bytes.NewBufferString(`[{"clientId":"bob","sampleSeq":1},{"clientId":"bob","sampleSeq":2,"marker":"muted"}]`)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/samples", body))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/clients", nil))
	var clients []ports.ClientSummary
	_ = json.NewDecoder(resp.Body).Decode(&clients)
	fmt.Println(resp.Code, clients[0].ClientID, clients[0].Samples)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/clients/bob/latest", nil))
	var s domain.ClientSample
	_ = json.NewDecoder(resp.Body).Decode(&s)
	fmt.Println(resp.Code, s.SampleSeq, s.Marker)

	// Output:
	// 200 bob 2
	// 200 2 muted
}
