package sync

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the feed is read-only and public
	},
}

// WSHandler upgrades the request and streams hub events to the socket.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		f := wsFollower{ws: ws}
		if err := hub.join(f); err != nil {
			log.Printf("[ws] welcome failed: %v", err)
			f.close()
			return
		}
		log.Println("[ws] client connected")

		// reads only detect disconnects
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.leave(f)
		log.Println("[ws] client disconnected")
	}
}
