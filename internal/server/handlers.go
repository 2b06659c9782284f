// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in demo page.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WebSocketHandler handles signaling upgrade requests. It only accepts GET,
// authenticates the request when a token secret is configured, upgrades the
// connection, and hands the new client to the hub.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	var subject string
	if s.verifier != nil {
		claims, err := s.verifier.Authenticate(r)
		if err != nil {
			s.logger.Info("rejected signaling connection",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		subject = claims.Subject
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written an error response.
		s.logger.Info("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(conn, r.RemoteAddr, s.cfg, s.logger.Named("client"))
	client.subject = subject

	if err := s.hub.Register(client); err != nil {
		if errors.Is(err, ErrHubClosed) {
			s.logger.Debug("refusing client during shutdown", zap.String("remote_addr", r.RemoteAddr))
		}
		client.Close()
		client.writeCloseMessage()
		client.closeConnection()
	}
}

// HealthHandler reports that the relay is running and how many peers are connected.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoSignal relay is running! clients=%d", s.hub.ClientCount())
}

// TestPageHandler serves a page that opens two peer connections in the same
// tab and negotiates a data channel between them through the relay.
func (s *Server) TestPageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprintf(w, testPageHTML, s.cfg.Path); err != nil {
		s.logger.Warn("error writing HTML response", zap.Error(err))
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoSignal Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
        }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
    </style>
</head>
<body>
    <h1>GoSignal Relay Test</h1>
    <p>Open this page in two tabs, then press Call in one of them.</p>
    <button id="callButton" onclick="call()">Call</button>
    <input type="text" id="chatInput" placeholder="Data channel message..." disabled>
    <button id="sendButton" onclick="sendChat()" disabled>Send</button>
    <div id="log"></div>

    <script>
        const logDiv = document.getElementById('log');
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '%s' + location.search);
        let pc = null;
        let channel = null;

        function log(text) {
            const line = document.createElement('div');
            line.textContent = text;
            logDiv.appendChild(line);
            logDiv.scrollTop = logDiv.scrollHeight;
        }

        function signal(msg) {
            ws.send(JSON.stringify(msg));
        }

        function bindChannel(ch) {
            channel = ch;
            ch.onopen = function() {
                log('data channel open');
                document.getElementById('chatInput').disabled = false;
                document.getElementById('sendButton').disabled = false;
            };
            ch.onmessage = function(e) { log('peer: ' + e.data); };
        }

        async function createPeer() {
            const resp = await fetch('/ice-servers');
            const config = await resp.json();
            pc = new RTCPeerConnection(config);
            pc.onicecandidate = function(e) {
                if (e.candidate) { signal({type: 'candidate', candidate: e.candidate}); }
            };
            pc.ondatachannel = function(e) { bindChannel(e.channel); };
            pc.onconnectionstatechange = function() { log('peer connection ' + pc.connectionState); };
        }

        async function call() {
            await createPeer();
            bindChannel(pc.createDataChannel('chat'));
            const offer = await pc.createOffer();
            await pc.setLocalDescription(offer);
            signal({type: 'offer', sdp: offer.sdp});
        }

        function sendChat() {
            const input = document.getElementById('chatInput');
            if (channel && input.value) {
                channel.send(input.value);
                log('you: ' + input.value);
                input.value = '';
            }
        }

        ws.onopen = function() { log('connected to relay'); };
        ws.onclose = function() { log('relay connection closed'); };
        ws.onmessage = async function(e) {
            const msg = JSON.parse(e.data);
            log('signal: ' + msg.type);
            if (msg.type === 'offer') {
                await createPeer();
                await pc.setRemoteDescription({type: 'offer', sdp: msg.sdp});
                const answer = await pc.createAnswer();
                await pc.setLocalDescription(answer);
                signal({type: 'answer', sdp: answer.sdp});
            } else if (msg.type === 'answer' && pc) {
                await pc.setRemoteDescription({type: 'answer', sdp: msg.sdp});
            } else if (msg.type === 'candidate' && pc) {
                await pc.addIceCandidate(msg.candidate);
            }
        };
    </script>
</body>
</html>`
