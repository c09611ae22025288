package main

type Settings struct {
	ServerURL   string `env:"WASH_SERVER_URL,default=ws://localhost:8000/websocket"`
	Token       string `env:"WASH_TOKEN,required=true"`
	LogEncoding string `env:"LOG_ENCODING"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
}
