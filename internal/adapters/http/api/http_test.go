package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/attune/internal/adapters/http/api"
	service "github.com/okian/attune/internal/app"
	"github.com/okian/attune/internal/domain/geometry"
	"github.com/okian/attune/internal/domain/model"
)

func frameBody(id, subject string) map[string]any {
	pts := geometry.SynthesizeIBUG68(geometry.DefaultFace())
	landmarks := make([]map[string]float64, len(pts))
	for i, p := range pts {
		landmarks[i] = map[string]float64{"x": p.X, "y": p.Y}
	}
	return map[string]any{
		"frame_id":   id,
		"subject_id": subject,
		"timestamp":  "2026-01-02T15:04:05Z",
		"width":      640,
		"height":     480,
		"landmarks":  landmarks,
	}
}

func do(mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeMap(w *httptest.ResponseRecorder) map[string]any {
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func newMux(svc *service.Service, maxBody int64) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, maxBody).Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(service.New(), 0)

		Convey("Then /healthz reports ok", func() {
			w := do(mux, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeMap(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then /metrics serves the Prometheus registry", func() {
			do(mux, http.MethodGet, "/healthz", nil)
			w := do(mux, http.MethodGet, "/metrics", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then /stats returns service statistics", func() {
			w := do(mux, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeMap(w), ShouldContainKey, "queue_capacity")
		})

		Convey("Then a wrong method is rejected", func() {
			w := do(mux, http.MethodGet, "/v1/analyze", nil)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("And a nil mux panics on register", func() {
			So(func() { api.NewServer(service.New(), 0).Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestAnalyzeEndpoint(t *testing.T) {
	Convey("Given an API over a fresh service", t, func() {
		mux := newMux(service.New(), 0)

		Convey("When a complete frame is posted", func() {
			w := do(mux, http.MethodPost, "/v1/analyze", frameBody("f1", "s1"))

			Convey("Then the analysis result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(w)
				So(body, ShouldContainKey, "metrics")
				So(body, ShouldContainKey, "advanced_metrics")
				So(body, ShouldContainKey, "enhanced_analysis")
				So(body["source"], ShouldEqual, model.SourceEnsemble)
			})
		})

		Convey("When identical landmarks are posted twice", func() {
			So(do(mux, http.MethodPost, "/v1/analyze", frameBody("f1", "s1")).Code, ShouldEqual, http.StatusOK)
			w := do(mux, http.MethodPost, "/v1/analyze", frameBody("f2", "s1"))

			Convey("Then the second result echoes its own frame and counts both samples", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(w)
				So(body["frame_id"], ShouldEqual, "f2")
				adv, _ := body["advanced_metrics"].(map[string]any)
				So(adv["temporal_samples"], ShouldEqual, 2.0)
			})
		})

		Convey("When the subject is missing", func() {
			w := do(mux, http.MethodPost, "/v1/analyze", frameBody("f1", ""))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeMap(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/v1/analyze", "{not json")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the timestamp is malformed", func() {
			body := frameBody("f1", "s1")
			body["timestamp"] = "yesterday"
			w := do(mux, http.MethodPost, "/v1/analyze", body)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeMap(w)["message"], ShouldContainSubstring, "timestamp")
		})
	})

	Convey("Given an API with a small body limit", t, func() {
		mux := newMux(service.New(), 64)

		Convey("When a large frame is posted", func() {
			w := do(mux, http.MethodPost, "/v1/analyze", frameBody("f1", "s1"))
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})
}

func TestFramesEndpoint(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		mux := newMux(service.New(), 0)

		Convey("Then submitted frames are refused", func() {
			w := do(mux, http.MethodPost, "/v1/frames", frameBody("f1", "s1"))
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })
		mux := newMux(svc, 0)

		Convey("When a frame is submitted", func() {
			w := do(mux, http.MethodPost, "/v1/frames", frameBody("f1", "s1"))

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decodeMap(w)
				So(body["frame_id"], ShouldEqual, "f1")
				So(body["duplicate"], ShouldBeFalse)
			})

			Convey("Then resubmitting the id is acknowledged as duplicate", func() {
				again := do(mux, http.MethodPost, "/v1/frames", frameBody("f1", "s1"))
				So(again.Code, ShouldEqual, http.StatusOK)
				So(decodeMap(again)["duplicate"], ShouldBeTrue)
			})
		})

		Convey("When a frame has no id", func() {
			w := do(mux, http.MethodPost, "/v1/frames", frameBody("", "s1"))
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(decodeMap(w)["frame_id"], ShouldNotBeEmpty)
		})
	})
}

func TestWorkflowEndpoints(t *testing.T) {
	Convey("Given an API over a fresh service", t, func() {
		mux := newMux(service.New(), 0)

		Convey("When a synchronous run is posted with a frame", func() {
			w := do(mux, http.MethodPost, "/v1/workflows", map[string]any{
				"subject_id": "s1",
				"topic":      "machine_learning",
				"frame":      frameBody("f1", ""),
			})

			Convey("Then the completed run is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Run model.WorkflowRun `json:"run"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Run.Status, ShouldEqual, model.RunCompleted)
				So(resp.Run.Steps, ShouldHaveLength, 5)
				So(resp.Run.Result, ShouldNotBeNil)

				Convey("And its summary is served by id", func() {
					got := do(mux, http.MethodGet, "/v1/workflows/"+resp.Run.ID, nil)
					So(got.Code, ShouldEqual, http.StatusOK)
					So(decodeMap(got), ShouldContainKey, "summary")
				})

				Convey("And it is listed", func() {
					list := do(mux, http.MethodGet, "/v1/workflows?limit=5", nil)
					So(list.Code, ShouldEqual, http.StatusOK)
					So(decodeMap(list)["runs"], ShouldHaveLength, 1)
				})

				Convey("And cancelling it reports not found", func() {
					del := do(mux, http.MethodDelete, "/v1/workflows/"+resp.Run.ID, nil)
					So(del.Code, ShouldEqual, http.StatusNotFound)
				})
			})
		})

		Convey("When the subject has no frame and no history", func() {
			w := do(mux, http.MethodPost, "/v1/workflows", map[string]any{"subject_id": "ghost"})

			Convey("Then the run fails on state analysis", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Run model.WorkflowRun `json:"run"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Run.Status, ShouldEqual, model.RunFailed)
			})
		})

		Convey("When the subject is missing", func() {
			w := do(mux, http.MethodPost, "/v1/workflows", map[string]any{"topic": "x"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a run is started asynchronously", func() {
			w := do(mux, http.MethodPost, "/v1/workflows?async=true", map[string]any{
				"subject_id": "s2",
				"frame":      frameBody("f2", "s2"),
			})
			So(w.Code, ShouldEqual, http.StatusAccepted)
			id, _ := decodeMap(w)["run_id"].(string)
			So(id, ShouldNotBeEmpty)

			Convey("Then it can be polled until it finishes", func() {
				var body map[string]any
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					got := do(mux, http.MethodGet, "/v1/workflows/"+id, nil)
					So(got.Code, ShouldEqual, http.StatusOK)
					body = decodeMap(got)
					if _, done := body["summary"]; done {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(body, ShouldContainKey, "summary")
			})
		})

		Convey("Then unknown runs are not found", func() {
			So(do(mux, http.MethodGet, "/v1/workflows/nope", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodDelete, "/v1/workflows/nope", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then an invalid list limit is rejected", func() {
			So(do(mux, http.MethodGet, "/v1/workflows?limit=-1", nil).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSubjectEndpoints(t *testing.T) {
	Convey("Given a subject with one analyzed frame", t, func() {
		mux := newMux(service.New(), 0)
		So(do(mux, http.MethodPost, "/v1/analyze", frameBody("f1", "s1")).Code, ShouldEqual, http.StatusOK)

		Convey("When the attention trend is requested", func() {
			w := do(mux, http.MethodGet, "/v1/subjects/s1/trend?metric=attention&k=3", nil)

			Convey("Then it covers the stored sample", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(w)
				So(body["metric"], ShouldEqual, "attention")
				So(body["samples"], ShouldEqual, 1.0)
			})
		})

		Convey("When the metric is unknown", func() {
			w := do(mux, http.MethodGet, "/v1/subjects/s1/trend?metric=emotion", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(strings.ToLower(decodeMap(w)["message"].(string)), ShouldContainSubstring, "unknown metric")
		})

		Convey("When the metric is missing", func() {
			So(do(mux, http.MethodGet, "/v1/subjects/s1/trend", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When temporal analysis is requested", func() {
			w := do(mux, http.MethodGet, "/v1/subjects/s1/temporal", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decodeMap(w)["samples"], ShouldEqual, 1.0)
		})
	})
}
