package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/flowdeskhq/flowdesk/docs" // Importa a pasta docs gerada

	// Nossos pacotes internos da aplicação!
	"github.com/flowdeskhq/flowdesk/internal/billing"
	"github.com/flowdeskhq/flowdesk/internal/config"
	httphandler "github.com/flowdeskhq/flowdesk/internal/handler/http"
	"github.com/flowdeskhq/flowdesk/internal/repository"
	"github.com/flowdeskhq/flowdesk/internal/service"
)

// @title           FlowDesk API
// @version         1.0
// @description     API do FlowDesk: CRM de leads/orçamentos com assinatura via Stripe.
//
// @host      localhost:8080
// @BasePath  /
func main() {
	// --- 1. CONFIGURAÇÃO DO LOGGER ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Iniciando a API do FlowDesk...")

	// --- 2. CONFIGURAÇÃO ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Erro ao carregar a configuração", "error", err)
		os.Exit(1)
	}

	// --- 3. CONEXÃO COM O BANCO DE DADOS E MIGRAÇÕES ---
	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("Erro ao inicializar o banco de dados", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("💾 Conexão com o banco de dados estabelecida com sucesso.")

	// --- 4. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	// DB -> Repositories -> Services -> Handlers. O gateway da Stripe é
	// construído uma única vez aqui e injetado no serviço de assinaturas.

	perfilRepo := repository.NewPerfilRepository(db)
	servicoRepo := repository.NewServicoRepository(db)
	eventoRepo := repository.NewWebhookEventRepository(db)
	slog.Info("Camada de repositório inicializada")

	gateway := billing.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret,
		cfg.StripePriceID, cfg.SiteURL)

	assinaturaService := service.NewAssinaturaService(perfilRepo, eventoRepo, gateway,
		cfg.GracePeriodOnPaymentFailure)
	perfilService := service.NewPerfilService(perfilRepo)
	servicoService := service.NewServicoService(servicoRepo, perfilRepo)
	relatorioService := service.NewRelatorioService(servicoRepo)
	slog.Info("Camada de serviço inicializada")

	assinaturaHandler := httphandler.NewAssinaturaHandler(assinaturaService)
	perfilHandler := httphandler.NewPerfilHandler(perfilService)
	servicoHandler := httphandler.NewServicoHandler(servicoService)
	relatorioHandler := httphandler.NewRelatorioHandler(relatorioService)
	slog.Info("Camada de handler inicializada")

	// --- 5. CONFIGURAÇÃO DO ROTEADOR E ROTAS ---
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// Rota de Health Check
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API do FlowDesk está no ar! 🚀"))
	})

	// Métricas Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// Rota para a documentação Swagger
	// A URL será http://localhost:8080/swagger/index.html
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	slog.Info("📖 Documentação Swagger disponível em /swagger/index.html")

	// Rotas da API
	r.Route("/api", func(r chi.Router) {
		// Billing: checkout de upgrade + webhook da Stripe
		r.Post("/checkout", assinaturaHandler.CriarCheckout)
		r.Post("/webhook", assinaturaHandler.Webhook)

		r.Route("/perfis", func(r chi.Router) {
			r.Post("/", perfilHandler.CriarPerfil)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", perfilHandler.BuscarPerfil)
				r.Put("/configuracoes", perfilHandler.AtualizarConfiguracoes)
				r.Mount("/servicos", servicoHandler.Routes())
				r.Mount("/relatorios", relatorioHandler.Routes())
			})
		})
	})
	slog.Info("🛰️  Rotas de /api registradas")

	// --- 6. INICIALIZAÇÃO DO SERVIDOR HTTP ---
	addr := ":" + cfg.Port
	slog.Info("✅ Servidor pronto para receber requisições", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Erro ao iniciar o servidor", "error", err)
		os.Exit(1)
	}
}

// initDB abre a conexão e aplica as migrações embutidas.
func initDB(filepath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", filepath)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := repository.RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}
