package goflot

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

const channelBufferSize = 1000

// HttpServer is the live-preview consumer of the chart model: it serves the
// embedded flot page, the current chart payloads over plain HTTP, and a
// stream of ChartUpdates over a websocket. The Graph itself never
// transports anything; this server is just one reader of its JSON output.
type HttpServer struct {
	broadcaster *ChartBroadcaster
	addr        string
	metadata    ChartMetadata
	mux         *http.ServeMux
	logger      logrus.FieldLogger
}

func NewHttpServer(broadcaster *ChartBroadcaster, addr string, metadata ChartMetadata) *HttpServer {
	s := &HttpServer{
		broadcaster: broadcaster,
		addr:        addr,
		metadata:    metadata,
		mux:         http.NewServeMux(),
		logger:      logrus.WithField("tag", "HttpServer"),
	}

	subFS, err := fs.Sub(webuiFiles, "webui")
	if err != nil {
		panic(err)
	}

	s.mux.Handle("/", http.FileServer(http.FS(subFS)))
	s.mux.HandleFunc("/chart", s.handleChart)
	s.mux.HandleFunc("/metadata", s.handleMetadata)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	return s
}

// handleChart serves the latest snapshot for clients that just want the two
// payloads once, without a websocket.
func (s *HttpServer) handleChart(w http.ResponseWriter, req *http.Request) {
	update := s.broadcaster.CurrentUpdate()

	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(update); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

func (s *HttpServer) handleMetadata(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.metadata); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
	}
}

func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	ctx := req.Context()
	ctx = c.CloseRead(ctx) // We only write to the browser, never read.

	channel := make(chan ChartUpdate, channelBufferSize)
	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case update, open := <-channel:
				if !open {
					s.logger.Warn("update channel closed, closing websocket")
					c.Close(websocket.StatusNormalClosure, "channel closed")
					return
				}

				if err := s.writeUpdate(ctx, c, update); err != nil {
					s.logger.WithError(err).Warn("websocket write failed and closed")
					return
				}

				if ended, _ := update.StreamEnded(); ended {
					c.Close(websocket.StatusNormalClosure, "stream ended")
					return
				}
			case <-ctx.Done():
				s.logger.Info("client closed connection or context canceled")
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()

	s.broadcaster.RegisterChannel(ctx, channel)

	wg.Wait()
	s.broadcaster.DeregisterChannel(ctx, channel)
	close(channel)
}

func (s *HttpServer) writeUpdate(ctx context.Context, c *websocket.Conn, update ChartUpdate) error {
	var buf []byte
	var err error

	if ended, streamErr := update.StreamEnded(); ended {
		msg := StreamEndMessage{}
		if streamErr != nil {
			msg.Error = true
			msg.Msg = streamErr.Error()
		}
		buf, err = EncodeStreamEndMessage(msg)
	} else {
		buf, err = EncodeUpdateMessage(update)
	}
	if err != nil {
		return err
	}

	return c.Write(ctx, websocket.MessageText, buf)
}

func (s *HttpServer) Run() error {
	s.logger.Infof("starting HTTP server at http://%s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}
