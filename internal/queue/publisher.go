package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/credits-api/internal/apperr"
    "github.com/iliyamo/credits-api/internal/mail"
)

// Publisher implements mail.Sender by publishing to the mail queue. Each
// call dials the broker, so no connection is held between requests.
type Publisher struct {
    URL   string
    Queue string
    Log   logrus.FieldLogger
}

func NewPublisher(url, queue string, log logrus.FieldLogger) *Publisher {
    return &Publisher{URL: url, Queue: queue, Log: log}
}

// Send declares the durable queue and publishes m as a persistent message.
func (p *Publisher) Send(ctx context.Context, m mail.Message) error {
    fields := map[string]interface{}{"queue": p.Queue, "recipient": m.To}

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        return apperr.Wrap("rabbitmq", "dial", err, fields)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return apperr.Wrap("rabbitmq", "channel", err, fields)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        return apperr.Wrap("rabbitmq", "queue_declare", err, fields)
    }

    body, err := json.Marshal(EmailMessage{Message: m, QueuedAt: time.Now().UTC()})
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        return apperr.Wrap("rabbitmq", "publish", err, fields)
    }
    p.Log.WithFields(logrus.Fields{"queue": p.Queue, "subject": m.Subject}).Debug("mail queued")
    return nil
}
