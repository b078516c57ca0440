package server

import (
	"fmt"
	"net/http"
)

// TestPageHandler serves an HTML page for exercising the chat protocol by hand:
// join with a name, send messages, and watch presence and typing events.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>chatrelay test page</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 240px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #typing { color: gray; font-style: italic; height: 1em; }
    </style>
</head>
<body>
    <h1>chatrelay</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="usernameInput" placeholder="Username">
        <input type="text" id="avatarInput" placeholder="Avatar URL">
        <button id="joinButton" onclick="join()">Join</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="users"></div>
    <div id="messages"></div>
    <div id="typing"></div>

    <script>
        let ws = null;
        let typingTimer = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const statusDiv = document.getElementById('status');

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ event: event, data: data }));
            }
        }

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.color = color || 'black';
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
        }

        function join() {
            const username = document.getElementById('usernameInput').value.trim();
            const avatar = document.getElementById('avatarInput').value.trim();
            if (!username) { return; }

            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() {
                updateStatus(true);
                emit('join', { username: username, avatar: avatar });
            };
            ws.onmessage = function(msg) {
                const frame = JSON.parse(msg.data);
                const data = frame.data;
                switch (frame.event) {
                case 'messageHistory':
                    data.forEach(function(m) { addLine(m.username + ': ' + m.content); });
                    break;
                case 'newMessage':
                    addLine(data.username + ': ' + data.content);
                    break;
                case 'userJoined':
                    addLine(data.username + ' joined', 'green');
                    break;
                case 'userLeft':
                    addLine(data.username + ' left', 'gray');
                    break;
                case 'userList':
                    document.getElementById('users').textContent =
                        'Online: ' + data.map(function(u) { return u.username; }).join(', ');
                    break;
                case 'userTyping':
                    document.getElementById('typing').textContent =
                        data.isTyping ? data.username + ' is typing...' : '';
                    break;
                }
            };
            ws.onclose = function() {
                addLine('Connection closed', 'gray');
                updateStatus(false);
                ws = null;
            };
        }

        function sendMessage() {
            const content = messageInput.value.trim();
            if (!content) { return; }
            emit('sendMessage', { content: content, timestamp: Date.now() });
            emit('typing', { isTyping: false });
            messageInput.value = '';
        }

        messageInput.addEventListener('input', function() {
            emit('typing', { isTyping: true });
            clearTimeout(typingTimer);
            typingTimer = setTimeout(function() { emit('typing', { isTyping: false }); }, 1000);
        });

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
